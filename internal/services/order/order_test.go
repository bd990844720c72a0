package order

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolvePickupLocation_ThreeTierFallback(t *testing.T) {
	// Первая ступень: место, выбранное при размещении товара
	assert.Equal(t, "Склад №3, Ростов",
		resolvePickupLocation("Склад №3, Ростов", "ул. Полевая 1", "Ростовская область"))

	// Вторая ступень: адрес и регион продавца
	assert.Equal(t, "ул. Полевая 1, Ростовская область",
		resolvePickupLocation("", "ул. Полевая 1", "Ростовская область"))
	assert.Equal(t, "ул. Полевая 1",
		resolvePickupLocation("", "ул. Полевая 1", ""))

	// Третья ступень: заглушка, никогда не ошибка
	assert.Equal(t, locationUnavailable, resolvePickupLocation("", "", ""))
}

func TestBuildTrackingCode(t *testing.T) {
	id := uuid.MustParse("a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d")

	code := buildTrackingCode(id)

	assert.Equal(t, "AGRO-A1B2C3D4", code)
	assert.True(t, strings.HasPrefix(code, "AGRO-"))

	// Код детерминирован по id заказа
	assert.Equal(t, code, buildTrackingCode(id))
}
