package order

import (
	"github.com/gofiber/fiber/v3"

	"github.com/agrolink/agrolink-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API подтверждённых заказов
func (s *OrderService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/confirmedbids")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут подтверждения принятой ставки
	api.Post("/", s.ConfirmOrder)

	// Маршрут списка заказов для стороны исполнения
	api.Get("/", s.GetOrders)
}
