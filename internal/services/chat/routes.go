package chat

import (
	"github.com/gofiber/fiber/v3"

	"github.com/agrolink/agrolink-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API переписки
func (s *ChatService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/messages")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут отправки сообщения
	api.Post("/", s.SendMessage)

	// Маршрут пометки сообщений собеседника прочитанными
	api.Put("/read/:otherId", s.MarkMessagesRead)

	// Маршрут истории переписки
	api.Get("/:otherId", s.GetMessages)
}
