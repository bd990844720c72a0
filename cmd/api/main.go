package main

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/agrolink/agrolink-api/internal/config"
	"github.com/agrolink/agrolink-api/internal/db"
	"github.com/agrolink/agrolink-api/internal/notify"
	"github.com/agrolink/agrolink-api/internal/services/bid"
	"github.com/agrolink/agrolink-api/internal/services/booking"
	"github.com/agrolink/agrolink-api/internal/services/chat"
	"github.com/agrolink/agrolink-api/internal/services/notification"
	"github.com/agrolink/agrolink-api/internal/services/order"
	"github.com/agrolink/agrolink-api/internal/utils"
	ws "github.com/agrolink/agrolink-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Реестр присутствия и диспетчер событий
	manager := ws.NewManager()
	defer manager.Shutdown()

	dispatcher := notify.NewDispatcher(notify.NewPGStore(), manager)

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "AgroLink API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы
	bidService := bid.NewBidService(cfg, dispatcher)
	orderService := order.NewOrderService(cfg, dispatcher)
	notificationService := notification.NewNotificationService(cfg, dispatcher)
	chatService := chat.NewChatService(cfg, dispatcher, manager)
	bookingService := booking.NewBookingService(cfg, dispatcher)

	// Входящие send_message из WebSocket канала идут через сервис переписки
	manager.MessageHandler = chatService.HandleChannelMessage

	// Регистрируем маршруты
	bidService.SetupRoutes(app)
	orderService.SetupRoutes(app)
	notificationService.SetupRoutes(app)
	chatService.SetupRoutes(app)
	bookingService.SetupRoutes(app)

	// WebSocket канал живёт на отдельном net/http листенере:
	// gorilla/websocket работает поверх стандартного http, а не fasthttp
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	wsHandler := ws.NewHandler(manager, jwtService)
	go func() {
		log.Printf("✅ WebSocket сервер запущен на порту %s", cfg.WSPort)
		if err := http.ListenAndServe(":"+cfg.WSPort, wsHandler.SetupRoutes()); err != nil {
			log.Fatalf("❌ Ошибка WebSocket сервера: %v", err)
		}
	}()

	// Запускаем сервер
	log.Printf("✅ AgroLink API запущен на порту %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
