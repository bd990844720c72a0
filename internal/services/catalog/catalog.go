// Package catalog реализует контракты чтения внешних сервисов: каталога
// товаров и справочника пользователей. Эти данные здесь не изменяются,
// ими владеют внешние коллабораторы.
package catalog

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agrolink/agrolink-api/internal/db"
	"github.com/agrolink/agrolink-api/internal/models"
)

// StockForProduct возвращает доступный остаток товара
func StockForProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := db.Pool.QueryRow(ctx, `
        SELECT stock FROM products WHERE id = $1
    `, productID).Scan(&stock)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &models.NotFoundError{Entity: "Товар", ID: productID.String()}
		}
		return 0, err
	}
	return stock, nil
}

// ProductInfo получает информацию о товаре. Возвращает nil, если товар
// не найден или запрос не удался.
func ProductInfo(ctx context.Context, productID uuid.UUID) *models.Product {
	var product models.Product
	err := db.Pool.QueryRow(ctx, `
        SELECT id, farmer_id, name, stock, unit_price, COALESCE(location, ''), created_at
        FROM products
        WHERE id = $1
    `, productID).Scan(
		&product.ID,
		&product.FarmerID,
		&product.Name,
		&product.Stock,
		&product.UnitPrice,
		&product.Location,
		&product.CreatedAt,
	)

	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("Ошибка получения товара %s: %v", productID, err)
		}
		return nil
	}

	return &product
}

// UserInfo получает базовую информацию о пользователе
func UserInfo(ctx context.Context, userID uuid.UUID) *models.User {
	var user models.User
	err := db.Pool.QueryRow(ctx, `
        SELECT id, name, COALESCE(phone, ''), COALESCE(address, ''), COALESCE(region, ''), role
        FROM users
        WHERE id = $1
    `, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.Address,
		&user.Region,
		&user.Role,
	)

	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("Ошибка получения пользователя %s: %v", userID, err)
		}
		return nil
	}

	return &user
}
