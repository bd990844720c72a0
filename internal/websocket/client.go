package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Максимальное время ожидания для pong от клиента
	pongWait = 60 * time.Second

	// Отправлять ping-сообщения клиенту с этим интервалом
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения от клиента
	maxMessageSize = 64 * 1024 // 64KB

	// Размер буфера для отправляемых сообщений
	sendBufferSize = 256
)

// Client представляет собой отдельное WebSocket соединение
type Client struct {
	ID      uuid.UUID
	UserID  string
	conn    *websocket.Conn
	send    chan []byte // Буферизованный канал исходящих сообщений
	manager *Manager
	rooms   map[string]bool // Комнаты, в которых состоит соединение; под mu менеджера

	closeOnce sync.Once
	closeChan chan struct{}
}

// NewClient создает новый экземпляр Client
func NewClient(userID string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:        uuid.New(),
		UserID:    userID,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		manager:   manager,
		rooms:     make(map[string]bool),
		closeChan: make(chan struct{}),
	}
}

// Start регистрирует клиента и запускает горутины чтения и записи
func (c *Client) Start() {
	c.manager.Register(c)

	go c.readPump()
	go c.writePump()
}

// Close закрывает соединение. Безопасен для повторных вызовов.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// enqueue кладёт данные в очередь отправки. Возвращает false, если очередь
// переполнена или соединение уже закрыто — вызывающий решает, что делать.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.closeChan:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump обрабатывает входящие сообщения от клиента
func (c *Client) readPump() {
	defer func() {
		c.manager.Unregister(c)
		c.Close()
	}()

	// Настраиваем соединение
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error: %v", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}
		case <-ticker.C:
			// Отправляем ping для поддержания соединения
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// joinRoomPayload тело события join_room
type joinRoomPayload struct {
	WithUserID string `json:"with_user_id"`
}

// sendMessagePayload тело события send_message
type sendMessagePayload struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

// handleIncomingMessage обрабатывает входящие события от клиента
func (c *Client) handleIncomingMessage(message []byte) {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("Ошибка разбора события: %v", err)
		return
	}

	// Не даём клиенту выдавать себя за другого пользователя
	if event.UserID != "" && event.UserID != c.UserID {
		log.Printf("UserID mismatch in message: %s vs %s", event.UserID, c.UserID)
		return
	}
	event.UserID = c.UserID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	switch event.Type {
	case EventJoinRoom:
		var payload joinRoomPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.WithUserID == "" {
			return
		}
		c.manager.JoinRoom(RoomKey(c.UserID, payload.WithUserID), c)

	case EventSendMessage:
		c.handleSendMessage(event)

	case EventTyping:
		var payload joinRoomPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.WithUserID == "" {
			return
		}
		roomKey := RoomKey(c.UserID, payload.WithUserID)
		event.RoomKey = roomKey
		c.manager.SendToRoom(roomKey, event, c.UserID)

	default:
		log.Printf("Необработанный тип события: %s", event.Type)
	}
}

// handleSendMessage обрабатывает отправку личного сообщения. Обработчик
// менеджера сохраняет сообщение и сам выполняет рассылку: в комнату и
// дублирующим push напрямую получателю.
func (c *Client) handleSendMessage(event Event) {
	var payload sendMessagePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		log.Printf("Ошибка разбора send_message: %v", err)
		return
	}
	if payload.RecipientID == "" || payload.Text == "" {
		return
	}

	senderID, err := uuid.Parse(c.UserID)
	if err != nil {
		return
	}
	recipientID, err := uuid.Parse(payload.RecipientID)
	if err != nil {
		return
	}

	if c.manager.MessageHandler == nil {
		log.Println("WebSocket: обработчик сообщений не настроен")
		return
	}

	if _, err := c.manager.MessageHandler(senderID, recipientID, payload.Text); err != nil {
		log.Printf("Ошибка сохранения сообщения: %v", err)
	}
}
