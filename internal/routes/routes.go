package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/config"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/handlers"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/middleware"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/repository"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/services"
	chatws "github.com/peddireddyrohith/ChatbotForEgovernence/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	schemeRepo := repository.NewSchemeRepository(db)

	var completion services.CompletionClient
	if cfg.OpenRouterAPIKey != "" {
		completion = services.NewOpenRouterClient(
			cfg.OpenRouterURL,
			cfg.OpenRouterAPIKey,
			cfg.OpenRouterModel,
			cfg.AssistantTimeout,
		)
	}
	assistant := services.NewAssistantService(completion)

	chatHub := chatws.NewHub()
	go chatHub.Run()

	chatService := services.NewChatService(
		conversationRepo,
		messageRepo,
		schemeRepo,
		userRepo,
		assistant,
		chatHub,
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	chat := authProtected.Group("/chat")
	chat.Get("", chatHandler.ListConversations)
	chat.Post("", chatHandler.SendMessage)
	chat.Get("/:id", chatHandler.GetMessages)
	chat.Delete("/:id", chatHandler.DeleteConversation)
	chat.Get("/:id/queue", chatHandler.GetQueuePosition)
	chat.Put("/:id/end-support", chatHandler.EndSupport)
	chat.Put("/:id/assign", middleware.AdminRequired(), chatHandler.AssignConversation)
	chat.Put("/:id/release", middleware.AdminRequired(), chatHandler.ReleaseConversation)
	chat.Put("/:id/admin-end-support", middleware.AdminRequired(), chatHandler.AdminEndSupport)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
