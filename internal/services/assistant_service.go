package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/models"
)

const systemInstruction = "You are a helpful Indian E-Governance Assistant. Provide accurate information about government schemes. \n\n" +
	"IMPORTANT INSTRUCTIONS:\n" +
	"1. If I provide 'RELEVANT GOVERNMENT DATA' in the input, you MUST use it.\n" +
	"2. ALWAYS provide the 'Official Link' from the data as a Markdown link, e.g., `[Click to Apply](https://url...)`.\n" +
	"3. Make your response clear, structured (use bullet points), and concise."

const greetingReply = "👋 Hello! I am your E-Governance Assistant.\n\n" +
	"I can help you with:\n" +
	"- **PM Kisan Samman Nidhi**\n" +
	"- **Aadhaar Card Updates**\n" +
	"- **PAN Card Application**\n" +
	"- **Ayushman Bharat**\n" +
	"- **DigiLocker**\n\n" +
	"Ask me about any scheme!"

var greetingKeywords = []string{"hello", "hi", "hey", "start", "help"}

// ChatCompletionMessage is one turn of the prompt sent to the responder
// backend.
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionClient is the outbound edge of the assistant: one bounded call,
// success or failure. A nil client (no credentials configured) is treated
// as a failure like any other.
type CompletionClient interface {
	Complete(ctx context.Context, messages []ChatCompletionMessage) (string, error)
}

// AssistantService turns an inbound message plus conversational context
// into reply text. It never fails past its own boundary: every error path
// resolves to a fallback text the router can persist.
type AssistantService struct {
	client CompletionClient
}

func NewAssistantService(client CompletionClient) *AssistantService {
	return &AssistantService{client: client}
}

// Reply produces the bot's answer. history must be in chronological order;
// schemes are the knowledge records already matched against the text.
func (s *AssistantService) Reply(
	ctx context.Context,
	text string,
	history []models.ChatMessage,
	schemes []models.Scheme,
) string {
	reply, err := s.complete(ctx, text, history, schemes)
	if err != nil {
		log.Printf("assistant completion failed: %v", err)
		return FallbackReply(text, schemes, err)
	}
	return reply
}

func (s *AssistantService) complete(
	ctx context.Context,
	text string,
	history []models.ChatMessage,
	schemes []models.Scheme,
) (string, error) {
	if s.client == nil {
		return "", errors.New("missing META_API_KEY")
	}

	messages := make([]ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, ChatCompletionMessage{Role: "system", Content: systemInstruction})
	for _, message := range history {
		role := "assistant"
		if message.Sender == models.SenderUser {
			role = "user"
		}
		messages = append(messages, ChatCompletionMessage{Role: role, Content: message.Text})
	}
	messages = append(messages, ChatCompletionMessage{
		Role:    "user",
		Content: text + renderSchemeContext(schemes),
	})

	return s.client.Complete(ctx, messages)
}

// renderSchemeContext formats matched schemes as the data block appended to
// the current message.
func renderSchemeContext(schemes []models.Scheme) string {
	if len(schemes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nRELEVANT GOVERNMENT DATA FOUND (Use this to answer):")
	for _, scheme := range schemes {
		b.WriteString("\n- Scheme: " + scheme.Name)
		b.WriteString("\n  Description: " + scheme.Description)
		b.WriteString("\n  Benefits: " + strings.Join(scheme.Benefits, ", "))
		b.WriteString("\n  Official Link: " + scheme.Link)
	}
	return b.String()
}

// FallbackReply is the offline answer used whenever the responder backend
// fails: a fixed greeting for greeting-like messages, a rendering of the
// already-matched schemes when there are any, and otherwise an explanation
// carrying the failure cause. Pure function, independently testable.
func FallbackReply(text string, schemes []models.Scheme, cause error) string {
	lower := strings.ToLower(text)
	for _, greeting := range greetingKeywords {
		if strings.Contains(lower, greeting) {
			return greetingReply
		}
	}

	if len(schemes) > 0 {
		var b strings.Builder
		b.WriteString("Here is the information I found (Local DB):\n\n")
		for _, scheme := range schemes {
			fmt.Fprintf(&b, "### %s\n%s\n**Benefits:** %s\n[Official Website](%s)\n\n",
				scheme.Name, scheme.Description, strings.Join(scheme.Benefits, ", "), scheme.Link)
		}
		b.WriteString("\n*(Offline Mode Active - AI Connection Failed)*")
		return b.String()
	}

	return fmt.Sprintf("I am having trouble connecting to the AI service. Please check your internet or API Key. (Error: %v)", cause)
}
