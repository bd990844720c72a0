package booking

import (
	"github.com/gofiber/fiber/v3"

	"github.com/agrolink/agrolink-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API бронирований транспорта
func (s *BookingService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/bookings")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут создания заявки на транспорт
	api.Post("/", s.CreateBooking)

	// Маршрут списка заявок
	api.Get("/", s.GetBookings)

	// Маршруты решения перевозчика
	api.Put("/accept/:id", s.AcceptBooking)
	api.Put("/reject/:id", s.RejectBooking)
}
