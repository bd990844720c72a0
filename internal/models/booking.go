package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus представляет статус бронирования транспорта
type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingAccepted BookingStatus = "accepted"
	BookingRejected BookingStatus = "rejected"
)

// Booking представляет бронирование транспорта фермером у перевозчика
type Booking struct {
	ID            uuid.UUID     `json:"id"`
	FarmerID      uuid.UUID     `json:"farmer_id"`
	FarmerName    string        `json:"farmer_name"`
	TransporterID uuid.UUID     `json:"transporter_id"`
	VehicleID     uuid.UUID     `json:"vehicle_id"`
	VehicleName   string        `json:"vehicle_name"`
	PickupPoint   string        `json:"pickup_point"`
	DropPoint     string        `json:"drop_point"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
