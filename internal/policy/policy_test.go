package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{MaxRebids: 10, Cooldown: 30 * time.Second}
}

func TestEvaluate_AllowsFirstRebid(t *testing.T) {
	now := time.Now()
	hist := History{TotalBids: 1, LastBidAt: now.Add(-time.Minute)}

	result, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 550, Quantity: 10}, 100, now)

	require.NoError(t, err)
	assert.Equal(t, 10, result.Quantity)
	assert.False(t, result.Adjusted)
}

func TestEvaluate_MaxRebidsReached(t *testing.T) {
	now := time.Now()
	// 11-я попытка при лимите 10 отклоняется независимо от времени
	hist := History{TotalBids: 10, LastBidAt: now.Add(-time.Hour)}

	_, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 600, Quantity: 1}, 100, now)

	require.Error(t, err)
	violation, ok := err.(*Violation)
	require.True(t, ok)
	assert.Equal(t, CodeMaxRebids, violation.Code)
}

func TestEvaluate_CooldownActive(t *testing.T) {
	now := time.Now()
	hist := History{TotalBids: 2, LastBidAt: now.Add(-10 * time.Second)}

	_, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 600, Quantity: 1}, 100, now)

	require.Error(t, err)
	violation, ok := err.(*Violation)
	require.True(t, ok)
	assert.Equal(t, CodeCooldown, violation.Code)
	// Остаток ожидания в пределах [0, cooldown)
	assert.GreaterOrEqual(t, violation.RetryAfter, time.Duration(0))
	assert.Less(t, violation.RetryAfter, 30*time.Second)
}

func TestEvaluate_CooldownExpired(t *testing.T) {
	now := time.Now()
	hist := History{TotalBids: 2, LastBidAt: now.Add(-31 * time.Second)}

	_, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 600, Quantity: 1}, 100, now)

	require.NoError(t, err)
}

func TestEvaluate_PriceMustImprove(t *testing.T) {
	now := time.Now()
	hist := History{TotalBids: 1, LastBidAt: now.Add(-time.Minute)}

	for _, price := range []int64{500, 499, 0, -10} {
		_, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: price, Quantity: 1}, 100, now)

		require.Error(t, err, "цена %d не должна проходить", price)
		violation, ok := err.(*Violation)
		require.True(t, ok)
		assert.Equal(t, CodePrice, violation.Code)
	}

	// Любое строгое улучшение проходит, минимальный процент не требуется
	_, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 501, Quantity: 1}, 100, now)
	require.NoError(t, err)
}

func TestEvaluate_ClampsQuantityToStock(t *testing.T) {
	now := time.Now()
	hist := History{TotalBids: 1, LastBidAt: now.Add(-time.Minute)}

	result, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 550, Quantity: 40}, 25, now)

	require.NoError(t, err)
	assert.Equal(t, 25, result.Quantity)
	assert.True(t, result.Adjusted)
}

func TestEvaluate_ZeroStockRejected(t *testing.T) {
	now := time.Now()
	hist := History{TotalBids: 1, LastBidAt: now.Add(-time.Minute)}

	// Нулевой остаток не уменьшает количество до нуля, а отклоняет ставку:
	// ставка с quantity = 0 невалидна
	_, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 550, Quantity: 5}, 0, now)

	require.Error(t, err)
	violation, ok := err.(*Violation)
	require.True(t, ok)
	assert.Equal(t, CodeStock, violation.Code)
}

func TestEvaluate_UnknownStockSkipsCheck(t *testing.T) {
	now := time.Now()
	hist := History{TotalBids: 1, LastBidAt: now.Add(-time.Minute)}

	// stock = -1 означает недоступный каталог, проверка пропускается
	result, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 550, Quantity: 40}, -1, now)

	require.NoError(t, err)
	assert.Equal(t, 40, result.Quantity)
	assert.False(t, result.Adjusted)
}

func TestEvaluate_CheckOrder(t *testing.T) {
	now := time.Now()
	// При одновременном нарушении лимита и кулдауна сообщаем про лимит
	hist := History{TotalBids: 10, LastBidAt: now.Add(-time.Second)}

	_, err := Evaluate(testConfig(), hist, 500, Request{UnitPrice: 100, Quantity: 1}, 0, now)

	require.Error(t, err)
	violation, ok := err.(*Violation)
	require.True(t, ok)
	assert.Equal(t, CodeMaxRebids, violation.Code)
}
