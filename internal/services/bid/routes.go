package bid

import (
	"github.com/gofiber/fiber/v3"

	"github.com/agrolink/agrolink-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API ставок
func (s *BidService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/bids")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания ставки
	api.Post("/", s.SubmitBid)

	// Маршрут для получения списка ставок
	api.Get("/", s.GetBids)

	// Маршруты решения продавца
	api.Put("/accept/:id", s.AcceptBid)
	api.Put("/reject/:id", s.RejectBid)

	// Маршрут повторной ставки по отклонённой
	api.Post("/rebid/:id", s.RebidBid)

	// Маршрут удаления отклонённой ставки при нулевом остатке
	api.Delete("/:id", s.DeleteBid)
}
