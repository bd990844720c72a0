package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_OnlyLegalEdges(t *testing.T) {
	statuses := []BidStatus{BidPending, BidAccepted, BidRejected, BidRebidded, BidConfirmed}

	legal := map[[2]BidStatus]bool{
		{BidPending, BidAccepted}:   true,
		{BidPending, BidRejected}:   true,
		{BidAccepted, BidConfirmed}: true,
		{BidRejected, BidRebidded}:  true,
	}

	// Полный перебор: достижимы только четыре ребра
	for _, from := range statuses {
		for _, to := range statuses {
			expected := legal[[2]BidStatus{from, to}]
			assert.Equal(t, expected, CanTransition(from, to), "%s → %s", from, to)
		}
	}
}

func TestTotalAmount(t *testing.T) {
	bid := Bid{UnitPrice: 500, Quantity: 10}

	// Сумма считается в целых числах, без плавающей точки
	assert.Equal(t, int64(5000), bid.TotalAmount())

	for i := 0; i < 1000; i++ {
		assert.Equal(t, int64(5000), bid.TotalAmount())
	}
}
