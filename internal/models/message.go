package models

import (
	"time"

	"github.com/google/uuid"
)

// Message представляет сообщение в переписке двух пользователей
type Message struct {
	ID          uuid.UUID `json:"id"`
	RoomKey     string    `json:"room_key"` // Детерминированный ключ комнаты двух участников
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Text        string    `json:"text"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`

	// Дополнительные поля для API
	Sender *User `json:"sender,omitempty"`
}
