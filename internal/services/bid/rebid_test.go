package bid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrolink/agrolink-api/internal/models"
)

func TestEffectiveStock(t *testing.T) {
	// Каталог ответил — остаток берём как есть
	assert.Equal(t, 25, effectiveStock(25, nil))
	assert.Equal(t, 0, effectiveStock(0, nil))

	// Удалённый товар равнозначен нулевому остатку: повторная ставка
	// по нему невозможна
	notFound := &models.NotFoundError{Entity: "Товар", ID: "x"}
	assert.Equal(t, 0, effectiveStock(0, notFound))

	// Временная ошибка каталога не блокирует ставку: проверка остатков
	// пропускается
	assert.Equal(t, -1, effectiveStock(0, errors.New("connection refused")))
}
