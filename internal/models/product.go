package models

import (
	"time"

	"github.com/google/uuid"
)

// Product представляет товар из каталога. Каталогом владеет внешний сервис,
// здесь используется только как источник остатков и данных о местоположении.
type Product struct {
	ID        uuid.UUID `json:"id"`
	FarmerID  uuid.UUID `json:"farmer_id"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	UnitPrice int64     `json:"unit_price"`
	Location  string    `json:"location,omitempty"` // Точка выдачи, выбранная при размещении
	CreatedAt time.Time `json:"created_at"`
}
