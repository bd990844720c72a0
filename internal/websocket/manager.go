package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agrolink/agrolink-api/internal/models"
)

// Manager представляет реестр присутствия: единственный источник знаний о том,
// какие пользователи сейчас подключены. Реестр живёт только в памяти процесса
// и не является источником истины для доставки — уведомления всегда сначала
// сохраняются в БД, а push поверх реестра лишь ускоряет получение.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client            // userID -> единственное активное соединение
	rooms   map[string]map[uuid.UUID]bool // ключ комнаты -> id соединений участников

	// MessageHandler вызывается при входящем send_message: сначала сохраняет
	// сообщение, затем менеджер рассылает его. Подключается в main.
	MessageHandler func(senderID, recipientID uuid.UUID, text string) (*models.Message, error)
}

// EventType определяет тип события WebSocket
type EventType string

const (
	EventConnected       EventType = "connected"
	EventJoinRoom        EventType = "join_room"
	EventSendMessage     EventType = "send_message"
	EventNewMessage      EventType = "new_message"
	EventTyping          EventType = "typing"
	EventNewNotification EventType = "new_notification"
	EventUserOnline      EventType = "user_online"
	EventUserOffline     EventType = "user_offline"
)

// Event представляет структуру сообщения для WebSocket
type Event struct {
	Type      EventType       `json:"type"`
	RoomKey   string          `json:"room_key,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewManager создает новый экземпляр Manager
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[uuid.UUID]bool),
	}
}

// RoomKey строит детерминированный ключ комнаты для двух участников.
// Идентификаторы сортируются, поэтому обе стороны получают один и тот же
// ключ независимо от того, кто подключился первым.
func RoomKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Register регистрирует соединение пользователя. У пользователя может быть
// только одно актуальное соединение: предыдущее закрывается и все push идут
// в новое. Остальным подключённым рассылается user_online.
func (m *Manager) Register(client *Client) {
	m.mu.Lock()
	previous := m.clients[client.UserID]
	m.clients[client.UserID] = client
	if previous != nil {
		m.removeFromRoomsLocked(previous)
	}
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	log.Printf("WebSocket: пользователь %s подключился (соединение %s)", client.UserID, client.ID)
	m.broadcastPresence(EventUserOnline, client.UserID)
}

// Unregister удаляет соединение из реестра. При быстром переподключении
// отложенный Unregister старого соединения не должен затронуть новое,
// поэтому запись удаляется только если она всё ещё принадлежит этому
// соединению.
func (m *Manager) Unregister(client *Client) {
	m.mu.Lock()
	current, ok := m.clients[client.UserID]
	stillCurrent := ok && current.ID == client.ID
	if stillCurrent {
		delete(m.clients, client.UserID)
	}
	m.removeFromRoomsLocked(client)
	m.mu.Unlock()

	if !stillCurrent {
		return
	}

	log.Printf("WebSocket: пользователь %s отключился (соединение %s)", client.UserID, client.ID)
	m.broadcastPresence(EventUserOffline, client.UserID)
}

// JoinRoom добавляет соединение в комнату переписки
func (m *Manager) JoinRoom(roomKey string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[roomKey]; !exists {
		m.rooms[roomKey] = make(map[uuid.UUID]bool)
	}
	m.rooms[roomKey][client.ID] = true
	client.rooms[roomKey] = true
}

// removeFromRoomsLocked убирает соединение из всех комнат. Вызывается под m.mu.
func (m *Manager) removeFromRoomsLocked(client *Client) {
	for roomKey := range client.rooms {
		if members, ok := m.rooms[roomKey]; ok {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(m.rooms, roomKey)
			}
		}
	}
	client.rooms = make(map[string]bool)
}

// IsOnline сообщает, есть ли у пользователя активное соединение
func (m *Manager) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clients[userID]
	return ok
}

// OnlineUsers возвращает список подключённых пользователей
func (m *Manager) OnlineUsers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]string, 0, len(m.clients))
	for userID := range m.clients {
		users = append(users, userID)
	}
	return users
}

// SendToUser отправляет событие активному соединению пользователя.
// Возвращает false, если пользователь не подключён или соединение не приняло
// событие — в этом случае получатель заберёт данные через опрос REST.
func (m *Manager) SendToUser(userID string, event Event) bool {
	if userID == "" {
		return false
	}

	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	data, err := marshalEvent(event)
	if err != nil {
		log.Printf("Ошибка сериализации события: %v", err)
		return false
	}

	if !client.enqueue(data) {
		// Канал заполнен, клиент слишком медленный — закрываем соединение
		log.Printf("WebSocket: очередь соединения %s переполнена, закрываем", client.ID)
		client.Close()
		m.Unregister(client)
		return false
	}
	return true
}

// SendToRoom рассылает событие всем участникам комнаты, кроме excludeUserID
func (m *Manager) SendToRoom(roomKey string, event Event, excludeUserID string) {
	data, err := marshalEvent(event)
	if err != nil {
		log.Printf("Ошибка сериализации события: %v", err)
		return
	}

	m.mu.RLock()
	members := m.rooms[roomKey]
	targets := make([]*Client, 0, len(members))
	for _, client := range m.clients {
		if client.UserID == excludeUserID {
			continue
		}
		if members[client.ID] {
			targets = append(targets, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(data)
	}
}

// broadcastPresence рассылает событие присутствия всем, кроме самого пользователя.
// Доставка best-effort: потерянное событие присутствия ни на что не влияет.
func (m *Manager) broadcastPresence(eventType EventType, userID string) {
	event := Event{Type: eventType, UserID: userID, Timestamp: time.Now()}
	data, err := marshalEvent(event)
	if err != nil {
		return
	}

	m.mu.RLock()
	targets := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		if client.UserID != userID {
			targets = append(targets, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(data)
	}
}

// marshalEvent сериализует событие, проставляя время, если оно не задано
func marshalEvent(event Event) ([]byte, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return json.Marshal(event)
}

// Shutdown закрывает все соединения и очищает реестр
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.Close()
	}
	m.clients = make(map[string]*Client)
	m.rooms = make(map[string]map[uuid.UUID]bool)
}
