package models

import "github.com/google/uuid"

// User представляет минимальную информацию о пользователе для API.
// Профилями владеет внешний сервис каталога пользователей.
type User struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Address string    `json:"address,omitempty"`
	Region  string    `json:"region,omitempty"`
	Role    string    `json:"role,omitempty"` // farmer, merchant, transporter
}
