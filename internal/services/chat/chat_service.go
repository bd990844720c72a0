package chat

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/agrolink/agrolink-api/internal/config"
	"github.com/agrolink/agrolink-api/internal/db"
	"github.com/agrolink/agrolink-api/internal/models"
	"github.com/agrolink/agrolink-api/internal/notify"
	"github.com/agrolink/agrolink-api/internal/services/catalog"
	"github.com/agrolink/agrolink-api/internal/utils"
	ws "github.com/agrolink/agrolink-api/internal/websocket"
)

// Последние N сообщений, отдаваемых при запросе истории
const historyLimit = 50

// ChatService представляет сервис личной переписки
type ChatService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	dispatcher *notify.Dispatcher
	manager    *ws.Manager
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(cfg *config.Config, dispatcher *notify.Dispatcher, manager *ws.Manager) *ChatService {
	return &ChatService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		dispatcher: dispatcher,
		manager:    manager,
	}
}

// SaveDirectMessage сохраняет личное сообщение и ставит получателю
// уведомление через общий контракт доставки. Вызывается и REST-маршрутом,
// и обработчиком send_message WebSocket канала — в обоих случаях сообщение
// сначала попадает в БД и только потом рассылается.
func (s *ChatService) SaveDirectMessage(senderID, recipientID uuid.UUID, text string) (*models.Message, error) {
	if text == "" {
		return nil, &models.ValidationError{Fields: []string{"text"}}
	}
	if senderID == recipientID {
		return nil, fmt.Errorf("нельзя отправить сообщение самому себе")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	msg := models.Message{
		ID:          uuid.New(),
		RoomKey:     ws.RoomKey(senderID.String(), recipientID.String()),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		IsRead:      false,
		CreatedAt:   time.Now(),
	}

	_, err := db.Pool.Exec(ctx, `
        INSERT INTO messages (id, room_key, sender_id, recipient_id, text, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, msg.ID, msg.RoomKey, msg.SenderID, msg.RecipientID, msg.Text, msg.IsRead, msg.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения сообщения: %w", err)
	}

	// Уведомление идёт по общему пути: запись в ленту, затем push.
	// Получатель увидит сообщение даже без активного соединения.
	senderName := ""
	if sender := catalog.UserInfo(ctx, senderID); sender != nil {
		senderName = sender.Name
	}
	s.dispatcher.Dispatch(ctx, models.Notification{
		UserID:  recipientID,
		Title:   "Новое сообщение",
		Message: text,
		Type:    models.NotifyMessage,
		Metadata: map[string]interface{}{
			"message_id":  msg.ID.String(),
			"room_key":    msg.RoomKey,
			"sender_id":   senderID.String(),
			"sender_name": senderName,
		},
	})

	return &msg, nil
}

// broadcast рассылает сохранённое сообщение: в комнату переписки и
// дублирующим push напрямую получателю — на случай, если тот ещё не
// присоединился к комнате
func (s *ChatService) broadcast(msg *models.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Ошибка сериализации сообщения %s: %v", msg.ID, err)
		return
	}

	event := ws.Event{
		Type:      ws.EventNewMessage,
		RoomKey:   msg.RoomKey,
		UserID:    msg.SenderID.String(),
		Timestamp: msg.CreatedAt,
		Payload:   data,
	}

	s.manager.SendToRoom(msg.RoomKey, event, msg.SenderID.String())
	s.manager.SendToUser(msg.RecipientID.String(), event)
}

// SendMessage отправляет личное сообщение через REST
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	senderID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		RecipientID string `json:"recipient_id"`
		Text        string `json:"text"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.RecipientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID получателя не указан"})
	}
	if requestData.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Текст сообщения не может быть пустым"})
	}

	recipientID, err := uuid.Parse(requestData.RecipientID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID получателя"})
	}

	msg, err := s.SaveDirectMessage(senderID, recipientID, requestData.Text)
	if err != nil {
		log.Printf("Ошибка отправки сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения сообщения"})
	}

	s.broadcast(msg)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

// HandleChannelMessage обрабатывает send_message из WebSocket канала:
// сохраняет и рассылает. Подключается к менеджеру в main.
func (s *ChatService) HandleChannelMessage(senderID, recipientID uuid.UUID, text string) (*models.Message, error) {
	msg, err := s.SaveDirectMessage(senderID, recipientID, text)
	if err != nil {
		return nil, err
	}

	s.broadcast(msg)
	return msg, nil
}

// GetMessages возвращает историю переписки с другим пользователем
func (s *ChatService) GetMessages(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	otherID, err := uuid.Parse(c.Params("otherId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID собеседника"})
	}

	roomKey := ws.RoomKey(userID, otherID.String())

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
        SELECT id, room_key, sender_id, recipient_id, text, is_read, created_at
        FROM messages
        WHERE room_key = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, roomKey, historyLimit)

	if err != nil {
		log.Printf("Ошибка запроса сообщений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения сообщений"})
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.RoomKey, &msg.SenderID, &msg.RecipientID,
			&msg.Text, &msg.IsRead, &msg.CreatedAt); err != nil {
			log.Printf("Ошибка сканирования сообщения: %v", err)
			continue
		}
		messages = append(messages, msg)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"room_key": roomKey,
		"has_more": len(messages) == historyLimit,
	})
}

// MarkMessagesRead помечает сообщения собеседника прочитанными
func (s *ChatService) MarkMessagesRead(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	currentID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	otherID, err := uuid.Parse(c.Params("otherId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID собеседника"})
	}

	roomKey := ws.RoomKey(currentID.String(), otherID.String())

	ctx, cancel := db.GetContext()
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
        UPDATE messages
        SET is_read = true
        WHERE room_key = $1 AND recipient_id = $2 AND is_read = false
    `, roomKey, currentID)

	if err != nil {
		log.Printf("Ошибка обновления статуса прочтения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления сообщений"})
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"modified_count": tag.RowsAffected(),
	})
}
