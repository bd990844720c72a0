package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus представляет статус подтверждённого заказа
type OrderStatus string

const (
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderPaid       OrderStatus = "paid"
	OrderCanceled   OrderStatus = "canceled"
)

// ConfirmedOrder представляет заказ, созданный при подтверждении принятой ставки.
// Сумма всегда вычисляется из ставки и никогда не вводится независимо.
type ConfirmedOrder struct {
	ID             uuid.UUID   `json:"id"`
	BidID          uuid.UUID   `json:"bid_id"`
	BuyerID        uuid.UUID   `json:"buyer_id"`
	SellerID       uuid.UUID   `json:"seller_id"`
	Amount         int64       `json:"amount"` // unit_price × quantity
	Status         OrderStatus `json:"status"`
	PickupLocation string      `json:"pickup_location"`
	TrackingCode   string      `json:"tracking_code,omitempty"`
	Items          []OrderItem `json:"items"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderItem представляет позицию заказа
type OrderItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
}
