// Package notify реализует доставку событий по контракту "сначала запись,
// потом push": уведомление обязательно сохраняется в БД и только после этого
// делается попытка мгновенной доставки через реестр присутствия. Ошибки
// доставки и записи уведомления никогда не влияют на основное действие,
// которое их породило.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/agrolink/agrolink-api/internal/models"
	ws "github.com/agrolink/agrolink-api/internal/websocket"
)

// Store отвечает за сохранение уведомлений
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	HasRecentOfType(ctx context.Context, userID uuid.UUID, t models.NotificationType, window time.Duration) (bool, error)
}

// Presence отвечает за мгновенную доставку подключённым пользователям
type Presence interface {
	SendToUser(userID string, event ws.Event) bool
}

// Dispatcher рассылает события изменения состояния
type Dispatcher struct {
	store    Store
	presence Presence
}

// NewDispatcher создает новый экземпляр Dispatcher
func NewDispatcher(store Store, presence Presence) *Dispatcher {
	return &Dispatcher{store: store, presence: presence}
}

// Dispatch сохраняет уведомление и пытается доставить его мгновенно.
// Сохранение обязательно и выполняется первым: если оно не удалось,
// push не делается, ошибка только логируется. Push выполняется
// at-most-once без подтверждений — не доставленное событие получатель
// заберёт опросом списка уведомлений.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := d.store.Create(ctx, &n); err != nil {
		log.Printf("Ошибка сохранения уведомления для %s: %v", n.UserID, err)
		return
	}

	d.push(n)
}

// DispatchOnce сохраняет уведомление, только если у получателя не было
// уведомления того же типа за указанное окно. Используется для сводных
// "поздравительных" событий, которые иначе дублируются при пакетной
// обработке.
func (d *Dispatcher) DispatchOnce(ctx context.Context, n models.Notification, window time.Duration) {
	exists, err := d.store.HasRecentOfType(ctx, n.UserID, n.Type, window)
	if err != nil {
		log.Printf("Ошибка проверки дубликата уведомления для %s: %v", n.UserID, err)
		return
	}
	if exists {
		return
	}

	d.Dispatch(ctx, n)
}

// push отправляет событие new_notification в активное соединение получателя
func (d *Dispatcher) push(n models.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("Ошибка сериализации уведомления %s: %v", n.ID, err)
		return
	}

	event := ws.Event{
		Type:      ws.EventNewNotification,
		UserID:    n.UserID.String(),
		Timestamp: n.CreatedAt,
		Payload:   payload,
	}

	// Получатель офлайн или соединение не приняло событие — не страшно,
	// запись уже в БД и будет получена через опрос
	d.presence.SendToUser(n.UserID.String(), event)
}
