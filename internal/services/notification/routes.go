package notification

import (
	"github.com/gofiber/fiber/v3"

	"github.com/agrolink/agrolink-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API уведомлений
func (s *NotificationService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/notifications")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут создания системного уведомления
	api.Post("/", s.CreateNotification)

	// Маршруты опроса ленты
	api.Get("/unread/:userId", s.GetUnreadCount)
	api.Get("/:userId", s.GetNotifications)

	// Маршруты пометки прочитанным
	api.Put("/read-all/:userId", s.MarkAllRead)
	api.Put("/read/:id", s.MarkRead)
}
