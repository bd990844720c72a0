package websocket

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/agrolink/agrolink-api/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Реальную проверку источника делает обратный прокси
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler обслуживает HTTP-эндпоинт WebSocket канала
type Handler struct {
	manager    *Manager
	jwtService *utils.JWTService
}

// NewHandler создает новый экземпляр Handler
func NewHandler(manager *Manager, jwtService *utils.JWTService) *Handler {
	return &Handler{
		manager:    manager,
		jwtService: jwtService,
	}
}

// SetupRoutes настраивает маршруты WebSocket сервера
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ws", h.HandleWebSocket)
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	return router
}

// HandleWebSocket повышает HTTP соединение до WebSocket. Личность клиента
// подтверждается JWT токеном из query-параметра, браузерный WebSocket API
// не позволяет передать заголовок Authorization.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ExtractUserID(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	if _, err := uuid.Parse(userID); err != nil {
		http.Error(w, "invalid user id", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Ошибка при апгрейде соединения: %v", err)
		return
	}

	client := NewClient(userID, conn, h.manager)
	client.Start()

	// Приветственное событие с id соединения
	welcome := Event{
		Type:      EventConnected,
		UserID:    userID,
		Timestamp: time.Now(),
	}
	if data, err := marshalEvent(welcome); err == nil {
		client.enqueue(data)
	}
}

// HealthCheck возвращает состояние WebSocket сервера
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","connections":%d}`, len(h.manager.OnlineUsers()))
}
