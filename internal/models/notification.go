package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType представляет тип уведомления
type NotificationType string

const (
	NotifyBidAccepted     NotificationType = "bid_accepted"
	NotifyBidRejected     NotificationType = "bid_rejected"
	NotifyBookingAccepted NotificationType = "booking_accepted"
	NotifyBookingRejected NotificationType = "booking_rejected"
	NotifyPayment         NotificationType = "payment"
	NotifyMessage         NotificationType = "message"
	NotifyGeneral         NotificationType = "general"
)

// Notification представляет запись в персональной ленте уведомлений пользователя.
// После создания запись неизменяема, кроме флага прочтения.
type Notification struct {
	ID        uuid.UUID              `json:"id"`
	UserID    uuid.UUID              `json:"user_id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      NotificationType       `json:"type"`
	IsRead    bool                   `json:"is_read"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"` // Суммы, связанные id, имена контрагентов
	CreatedAt time.Time              `json:"created_at"`
}
