package notification

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/agrolink/agrolink-api/internal/config"
	"github.com/agrolink/agrolink-api/internal/db"
	"github.com/agrolink/agrolink-api/internal/models"
	"github.com/agrolink/agrolink-api/internal/notify"
	"github.com/agrolink/agrolink-api/internal/utils"
)

// Последние N уведомлений, отдаваемых при опросе
const listLimit = 50

// NotificationService представляет REST-поверхность ленты уведомлений.
// Лента — единственный гарантированный канал: push поверх WebSocket лишь
// ускоряет доставку, а клиенты без соединения опрашивают эти маршруты.
type NotificationService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	dispatcher *notify.Dispatcher
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(cfg *config.Config, dispatcher *notify.Dispatcher) *NotificationService {
	return &NotificationService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		dispatcher: dispatcher,
	}
}

// requireOwnUser проверяет, что путь указывает на пользователя из токена.
// Ошибки отдаются через fiber.Error и форматируются обработчиком приложения.
func requireOwnUser(c fiber.Ctx, param string) (uuid.UUID, error) {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Пользователь не авторизован")
	}

	pathID, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Неверный формат ID пользователя")
	}

	if pathID.String() != userID {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "Доступ только к собственным уведомлениям")
	}

	return pathID, nil
}

// GetNotifications возвращает последние уведомления пользователя,
// отсортированные по времени создания по убыванию
func (s *NotificationService) GetNotifications(c fiber.Ctx) error {
	userID, err := requireOwnUser(c, "userId")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
        SELECT id, user_id, title, message, type, is_read, metadata, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, userID, listLimit)

	if err != nil {
		log.Printf("Ошибка запроса уведомлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения уведомлений"})
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var metadata []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &metadata, &n.CreatedAt); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
				log.Printf("Ошибка разбора метаданных уведомления %s: %v", n.ID, err)
			}
		}

		notifications = append(notifications, n)
	}

	return c.JSON(fiber.Map{
		"notifications":         notifications,
		"count":                 len(notifications),
		"poll_interval_seconds": int(s.cfg.Notify.PollInterval.Seconds()),
	})
}

// GetUnreadCount возвращает число непрочитанных уведомлений
func (s *NotificationService) GetUnreadCount(c fiber.Ctx) error {
	userID, err := requireOwnUser(c, "userId")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var count int
	err = db.Pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false
    `, userID).Scan(&count)

	if err != nil {
		log.Printf("Ошибка подсчёта непрочитанных: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения счётчика"})
	}

	return c.JSON(fiber.Map{
		"unread_count": count,
	})
}

// MarkRead помечает уведомление прочитанным. Флаг прочтения — единственное
// изменяемое поле уведомления.
func (s *NotificationService) MarkRead(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	notificationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID уведомления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
        UPDATE notifications
        SET is_read = true
        WHERE id = $1 AND user_id = $2
    `, notificationID, userID)

	if err != nil {
		log.Printf("Ошибка обновления уведомления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления уведомления"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Уведомление не найдено"})
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"modified_count": tag.RowsAffected(),
	})
}

// MarkAllRead помечает все уведомления пользователя прочитанными
func (s *NotificationService) MarkAllRead(c fiber.Ctx) error {
	userID, err := requireOwnUser(c, "userId")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
        UPDATE notifications
        SET is_read = true
        WHERE user_id = $1 AND is_read = false
    `, userID)

	if err != nil {
		log.Printf("Ошибка обновления уведомлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления уведомлений"})
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"modified_count": tag.RowsAffected(),
	})
}

// CreateNotification создает системное уведомление напрямую. Используется
// внешними коллабораторами для синтетических событий (например, платежи);
// проходит тот же путь доставки: запись, затем push.
func (s *NotificationService) CreateNotification(c fiber.Ctx) error {
	var requestData struct {
		UserID   string                 `json:"user_id"`
		Title    string                 `json:"title"`
		Message  string                 `json:"message"`
		Type     string                 `json:"type"`
		Metadata map[string]interface{} `json:"metadata"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	var missing []string
	if requestData.UserID == "" {
		missing = append(missing, "user_id")
	}
	if requestData.Title == "" {
		missing = append(missing, "title")
	}
	if requestData.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		validationErr := &models.ValidationError{Fields: missing}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":          validationErr.Error(),
			"missing_fields": missing,
		})
	}

	recipientID, err := uuid.Parse(requestData.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	notifType := models.NotificationType(requestData.Type)
	if notifType == "" {
		notifType = models.NotifyGeneral
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	notification := models.Notification{
		ID:       uuid.New(),
		UserID:   recipientID,
		Title:    requestData.Title,
		Message:  requestData.Message,
		Type:     notifType,
		Metadata: requestData.Metadata,
	}

	s.dispatcher.Dispatch(ctx, notification)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":               true,
		"notification_id":       notification.ID,
		"poll_interval_seconds": int(s.cfg.Notify.PollInterval.Seconds()),
	})
}
