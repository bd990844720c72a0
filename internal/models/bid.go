package models

import (
	"time"

	"github.com/google/uuid"
)

// BidStatus представляет статус ценового предложения
type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidRebidded  BidStatus = "rebidded"  // Заменено новой ставкой, запись сохраняется
	BidConfirmed BidStatus = "confirmed" // Покупатель подтвердил принятую ставку
)

// CanTransition проверяет допустимость перехода между статусами ставки.
// Единственные допустимые рёбра: pending→accepted, pending→rejected,
// accepted→confirmed, rejected→rebidded.
func CanTransition(from, to BidStatus) bool {
	switch from {
	case BidPending:
		return to == BidAccepted || to == BidRejected
	case BidAccepted:
		return to == BidConfirmed
	case BidRejected:
		return to == BidRebidded
	default:
		return false
	}
}

// Bid представляет ценовое предложение покупателя фермеру
type Bid struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    uuid.UUID  `json:"product_id"`
	ProductName  string     `json:"product_name"`
	UnitPrice    int64      `json:"unit_price"` // Цена за единицу в целых денежных единицах
	Quantity     int        `json:"quantity"`
	BuyerID      uuid.UUID  `json:"buyer_id"`
	BuyerName    string     `json:"buyer_name"`
	BuyerPhone   string     `json:"buyer_phone"`
	SellerID     uuid.UUID  `json:"seller_id"`
	Status       BidStatus  `json:"status"`
	SupersededBy *uuid.UUID `json:"superseded_by,omitempty"` // Новая ставка, заменившая эту после отклонения
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Дополнительные поля для API
	Buyer  *User `json:"buyer,omitempty"`
	Seller *User `json:"seller,omitempty"`
}

// TotalAmount возвращает сумму ставки (цена за единицу × количество)
func (b *Bid) TotalAmount() int64 {
	return b.UnitPrice * int64(b.Quantity)
}
