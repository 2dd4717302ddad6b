package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/models"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/services"
	chatws "github.com/peddireddyrohith/ChatbotForEgovernence/internal/websocket"
)

type stubChatService struct {
	conversationsResult []models.ConversationSummary
	conversationsErr    error
	messagesResult      []models.ChatMessage
	messagesErr         error
	sendResult          *services.SendResult
	sendErr             error
	conversationResult  *models.Conversation
	conversationErr     error
	positionResult      int
	positionErr         error
	deleteErr           error
	lastActorID         int64
	lastRole            string
	lastConversationID  int64
	lastText            string
}

func (s *stubChatService) ListConversations(_ context.Context, actorID int64, role string) ([]models.ConversationSummary, error) {
	s.lastActorID = actorID
	s.lastRole = role
	return s.conversationsResult, s.conversationsErr
}

func (s *stubChatService) ListMessages(_ context.Context, actorID int64, role string, conversationID int64) ([]models.ChatMessage, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastConversationID = conversationID
	return s.messagesResult, s.messagesErr
}

func (s *stubChatService) SendMessage(_ context.Context, actorID int64, role string, conversationID int64, text string) (*services.SendResult, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastConversationID = conversationID
	s.lastText = text
	return s.sendResult, s.sendErr
}

func (s *stubChatService) DeleteConversation(_ context.Context, actorID int64, role string, conversationID int64) error {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastConversationID = conversationID
	return s.deleteErr
}

func (s *stubChatService) AssignConversation(_ context.Context, adminID int64, conversationID int64) (*models.Conversation, error) {
	s.lastActorID = adminID
	s.lastConversationID = conversationID
	return s.conversationResult, s.conversationErr
}

func (s *stubChatService) ReleaseConversation(_ context.Context, conversationID int64) (*models.Conversation, error) {
	s.lastConversationID = conversationID
	return s.conversationResult, s.conversationErr
}

func (s *stubChatService) QueuePosition(_ context.Context, actorID int64, role string, conversationID int64) (int, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastConversationID = conversationID
	return s.positionResult, s.positionErr
}

func (s *stubChatService) EndSupport(_ context.Context, actorID int64, conversationID int64) (*models.Conversation, error) {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	return s.conversationResult, s.conversationErr
}

func (s *stubChatService) AdminEndSupport(_ context.Context, adminID int64, conversationID int64) (*models.Conversation, error) {
	s.lastActorID = adminID
	s.lastConversationID = conversationID
	return s.conversationResult, s.conversationErr
}

func newChatTestApp(service *stubChatService, role string, userID string) (*fiber.App, *ChatHandler) {
	handler := NewChatHandler(service, chatws.NewHub(), "secret")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals("role", role)
		}
		if userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	})
	return app, handler
}

func TestListConversationsPassesActorContext(t *testing.T) {
	service := &stubChatService{
		conversationsResult: []models.ConversationSummary{
			{Conversation: models.Conversation{ID: 17, UserID: 42, Title: "PAN card help..."}, OwnerName: "Rohith"},
		},
	}
	app, handler := newChatTestApp(service, "user", "42")
	app.Get("/api/v1/chat", handler.ListConversations)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 || service.lastRole != "user" {
		t.Fatalf("unexpected actor context: %d %q", service.lastActorID, service.lastRole)
	}

	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Conversations) != 1 || body.Conversations[0].OwnerName != "Rohith" {
		t.Fatalf("unexpected response: %+v", body.Conversations)
	}
}

func TestSendMessagePassesBodyThrough(t *testing.T) {
	service := &stubChatService{
		sendResult: &services.SendResult{
			ConversationID: 9,
			UserMessage:    &models.ChatMessage{ID: 1, ConversationID: 9, Sender: models.SenderUser, Text: "hello"},
		},
	}
	app, handler := newChatTestApp(service, "user", "42")
	app.Post("/api/v1/chat", handler.SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"conversation_id": 9, "text": "hello"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastConversationID != 9 || service.lastText != "hello" {
		t.Fatalf("unexpected pass-through: %d %q", service.lastConversationID, service.lastText)
	}

	var body services.SendResult
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.ConversationID != 9 || body.UserMessage == nil {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestSendMessageRejectsMissingAuthContext(t *testing.T) {
	app, handler := newChatTestApp(&stubChatService{}, "", "")
	app.Post("/api/v1/chat", handler.SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAssignConversationConflictMapsTo409(t *testing.T) {
	service := &stubChatService{conversationErr: services.ErrConflict}
	app, handler := newChatTestApp(service, "admin", "7")
	app.Put("/api/v1/chat/:id/assign", handler.AssignConversation)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/chat/17/assign", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if service.lastActorID != 7 || service.lastConversationID != 17 {
		t.Fatalf("unexpected pass-through: %d %d", service.lastActorID, service.lastConversationID)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !strings.Contains(body.Error, "already assigned") {
		t.Fatalf("unexpected error body: %q", body.Error)
	}
}

func TestEndSupportNotFoundMapsTo404(t *testing.T) {
	service := &stubChatService{conversationErr: services.ErrConversationNotFound}
	app, handler := newChatTestApp(service, "user", "42")
	app.Put("/api/v1/chat/:id/end-support", handler.EndSupport)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/chat/99/end-support", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetMessagesForbiddenMapsTo403(t *testing.T) {
	service := &stubChatService{messagesErr: services.ErrForbidden}
	app, handler := newChatTestApp(service, "user", "42")
	app.Get("/api/v1/chat/:id", handler.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/17", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGetMessagesRejectsBadConversationID(t *testing.T) {
	app, handler := newChatTestApp(&stubChatService{}, "user", "42")
	app.Get("/api/v1/chat/:id", handler.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/not-a-number", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetQueuePositionReturnsPosition(t *testing.T) {
	service := &stubChatService{positionResult: 2}
	app, handler := newChatTestApp(service, "user", "42")
	app.Get("/api/v1/chat/:id/queue", handler.GetQueuePosition)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/17/queue", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Position int `json:"position"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Position != 2 {
		t.Fatalf("expected position 2, got %d", body.Position)
	}
}

func TestDeleteConversationReturnsConfirmation(t *testing.T) {
	service := &stubChatService{}
	app, handler := newChatTestApp(service, "user", "42")
	app.Delete("/api/v1/chat/:id", handler.DeleteConversation)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/chat/17", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastConversationID != 17 {
		t.Fatalf("expected conversation 17, got %d", service.lastConversationID)
	}
}
