package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/models"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/services"
	chatws "github.com/peddireddyrohith/ChatbotForEgovernence/internal/websocket"
	"github.com/peddireddyrohith/ChatbotForEgovernence/pkg/utils"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, actorID int64, role string) ([]models.ConversationSummary, error)
	ListMessages(ctx context.Context, actorID int64, role string, conversationID int64) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, actorID int64, role string, conversationID int64, text string) (*services.SendResult, error)
	DeleteConversation(ctx context.Context, actorID int64, role string, conversationID int64) error
	AssignConversation(ctx context.Context, adminID int64, conversationID int64) (*models.Conversation, error)
	ReleaseConversation(ctx context.Context, conversationID int64) (*models.Conversation, error)
	QueuePosition(ctx context.Context, actorID int64, role string, conversationID int64) (int, error)
	EndSupport(ctx context.Context, actorID int64, conversationID int64) (*models.Conversation, error)
	AdminEndSupport(ctx context.Context, adminID int64, conversationID int64) (*models.Conversation, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	jwtSecret string
}

type sendMessageRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Text           string `json:"text"`
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	actorID, role, err := actorContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversations(c.Context(), actorID, role)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	actorID, role, err := actorContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	messages, err := h.service.ListMessages(c.Context(), actorID, role, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	actorID, role, err := actorContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ConversationID < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	result, err := h.service.SendMessage(c.Context(), actorID, role, req.ConversationID, req.Text)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(result)
}

func (h *ChatHandler) DeleteConversation(c *fiber.Ctx) error {
	actorID, role, err := actorContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	if err := h.service.DeleteConversation(c.Context(), actorID, role, conversationID); err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Conversation removed"})
}

func (h *ChatHandler) AssignConversation(c *fiber.Ctx) error {
	adminID, _, err := actorContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	conversation, err := h.service.AssignConversation(c.Context(), adminID, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) ReleaseConversation(c *fiber.Ctx) error {
	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	conversation, err := h.service.ReleaseConversation(c.Context(), conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) GetQueuePosition(c *fiber.Ctx) error {
	actorID, role, err := actorContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	position, err := h.service.QueuePosition(c.Context(), actorID, role, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"position": position})
}

func (h *ChatHandler) EndSupport(c *fiber.Ctx) error {
	actorID, _, err := actorContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	conversation, err := h.service.EndSupport(c.Context(), actorID, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) AdminEndSupport(c *fiber.Ctx) error {
	adminID, _, err := actorContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseConversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	conversation, err := h.service.AdminEndSupport(c.Context(), adminID, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	client := chatws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func actorContext(c *fiber.Ctx) (int64, string, error) {
	rawID, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, "", errors.New("missing user id")
	}
	actorID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || actorID <= 0 {
		return 0, "", errors.New("invalid user id")
	}

	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleUser && role != models.RoleAdmin) {
		return 0, "", errors.New("invalid role")
	}

	return actorID, role, nil
}

func parseConversationID(c *fiber.Ctx) (int64, error) {
	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return 0, errors.New("invalid conversation id")
	}
	return conversationID, nil
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not authorized"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Chat is already assigned to another admin"})
	case errors.Is(err, services.ErrConversationNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
