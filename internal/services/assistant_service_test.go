package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/models"
)

type stubCompletionClient struct {
	reply    string
	err      error
	received []ChatCompletionMessage
}

func (s *stubCompletionClient) Complete(_ context.Context, messages []ChatCompletionMessage) (string, error) {
	s.received = messages
	return s.reply, s.err
}

var kisanScheme = models.Scheme{
	Name:        "PM Kisan Samman Nidhi",
	Description: "Income support for farmer families.",
	Benefits:    []string{"Rs 6000 per year"},
	Link:        "https://pmkisan.gov.in/",
}

func TestReplyAssemblesPrompt(t *testing.T) {
	client := &stubCompletionClient{reply: "You can apply online."}
	service := NewAssistantService(client)

	history := []models.ChatMessage{
		{Sender: models.SenderUser, Text: "hello"},
		{Sender: models.SenderBot, Text: "hi, how can I help?"},
		{Sender: models.SenderAdmin, Text: "checking in"},
	}

	got := service.Reply(context.Background(), "how do I apply for pm kisan?", history, []models.Scheme{kisanScheme})
	if got != "You can apply online." {
		t.Fatalf("expected client reply verbatim, got %q", got)
	}

	messages := client.received
	if len(messages) != 5 {
		t.Fatalf("expected system + 3 history + current, got %d", len(messages))
	}
	if messages[0].Role != "system" {
		t.Fatalf("first message must be the system instruction, got role %q", messages[0].Role)
	}
	wantRoles := []string{"user", "assistant", "assistant"}
	for i, want := range wantRoles {
		if messages[i+1].Role != want {
			t.Fatalf("history message %d: expected role %q, got %q", i, want, messages[i+1].Role)
		}
	}

	last := messages[len(messages)-1]
	if last.Role != "user" {
		t.Fatalf("current message must carry role user, got %q", last.Role)
	}
	if !strings.Contains(last.Content, "RELEVANT GOVERNMENT DATA FOUND") {
		t.Fatalf("matched schemes must be appended to the current message: %q", last.Content)
	}
	if !strings.Contains(last.Content, kisanScheme.Link) {
		t.Fatalf("scheme link missing from prompt: %q", last.Content)
	}
}

func TestReplyWithoutSchemesOmitsDataBlock(t *testing.T) {
	client := &stubCompletionClient{reply: "ok"}
	service := NewAssistantService(client)

	service.Reply(context.Background(), "what is digilocker", nil, nil)

	last := client.received[len(client.received)-1]
	if strings.Contains(last.Content, "RELEVANT GOVERNMENT DATA") {
		t.Fatalf("empty scheme match must not add a data block: %q", last.Content)
	}
}

func TestReplyFallsBackOnClientError(t *testing.T) {
	client := &stubCompletionClient{err: errors.New("upstream down")}
	service := NewAssistantService(client)

	got := service.Reply(context.Background(), "tell me about pan card fees", nil, nil)
	if !strings.Contains(got, "upstream down") {
		t.Fatalf("generic fallback must carry the cause, got %q", got)
	}
}

func TestReplyWithNilClientUsesFallback(t *testing.T) {
	service := NewAssistantService(nil)

	got := service.Reply(context.Background(), "pan card status", nil, nil)
	if !strings.Contains(got, "META_API_KEY") {
		t.Fatalf("nil client must surface the missing key cause, got %q", got)
	}
}

func TestFallbackReplyGreeting(t *testing.T) {
	got := FallbackReply("Hello!", []models.Scheme{kisanScheme}, errors.New("timeout"))
	if got != greetingReply {
		t.Fatalf("greeting input must return the fixed greeting, got %q", got)
	}
	// The greeting branch wins even when schemes matched.
	if strings.Contains(got, "Local DB") {
		t.Fatalf("greeting must take precedence over scheme rendering")
	}
}

func TestFallbackReplyRendersSchemes(t *testing.T) {
	got := FallbackReply("pm kisan details", []models.Scheme{kisanScheme}, errors.New("timeout"))
	for _, want := range []string{
		"Here is the information I found (Local DB):",
		"### PM Kisan Samman Nidhi",
		"**Benefits:** Rs 6000 per year",
		"[Official Website](https://pmkisan.gov.in/)",
		"Offline Mode Active",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("scheme fallback missing %q in %q", want, got)
		}
	}
}

func TestFallbackReplyGenericCarriesCause(t *testing.T) {
	got := FallbackReply("something unrelated", nil, errors.New("connection refused"))
	if !strings.Contains(got, "connection refused") {
		t.Fatalf("generic fallback must include the cause, got %q", got)
	}
}

func TestFallbackReplyIsDeterministic(t *testing.T) {
	cause := errors.New("timeout")
	first := FallbackReply("pm kisan details", []models.Scheme{kisanScheme}, cause)
	second := FallbackReply("pm kisan details", []models.Scheme{kisanScheme}, cause)
	if first != second {
		t.Fatalf("fallback must be deterministic for identical input")
	}
}
