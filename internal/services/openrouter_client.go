package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenRouterClient calls an OpenRouter-compatible chat-completions API with
// fixed generation parameters. The HTTP client timeout bounds every call;
// a timeout is just another failure for the caller's fallback path.
type OpenRouterClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenRouterClient(baseURL, apiKey, model string, timeout time.Duration) *OpenRouterClient {
	return &OpenRouterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatCompletionRequest struct {
	Model             string                  `json:"model"`
	Messages          []ChatCompletionMessage `json:"messages"`
	TopP              float64                 `json:"top_p"`
	Temperature       float64                 `json:"temperature"`
	RepetitionPenalty float64                 `json:"repetition_penalty"`
	MaxTokens         int                     `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenRouterClient) Complete(ctx context.Context, messages []ChatCompletionMessage) (string, error) {
	payload := chatCompletionRequest{
		Model:             c.model,
		Messages:          messages,
		TopP:              1,
		Temperature:       0.5,
		RepetitionPenalty: 1,
		MaxTokens:         600,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "http://localhost:5000")
	req.Header.Set("X-Title", "E-Governance Chatbot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("completion api: status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion response contained no content")
	}

	return completion.Choices[0].Message.Content, nil
}
