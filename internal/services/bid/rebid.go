package bid

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agrolink/agrolink-api/internal/db"
	"github.com/agrolink/agrolink-api/internal/models"
	"github.com/agrolink/agrolink-api/internal/policy"
	"github.com/agrolink/agrolink-api/internal/services/catalog"
)

// effectiveStock переводит ответ каталога в остатки для политики:
// удалённый товар считается закончившимся, а при временной ошибке
// каталога проверка остатков пропускается.
func effectiveStock(current int, err error) int {
	if err == nil {
		return current
	}
	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		return 0
	}
	log.Printf("Ошибка запроса остатков: %v", err)
	return -1
}

// RebidBid создает повторную ставку взамен отклонённой. Политика проверяется
// до любых изменений в БД; создание новой ставки и пометка старой как
// rebidded выполняются одной транзакцией, чтобы в системе не оказалось двух
// "живых" ставок по одному отклонённому предложению.
func (s *BidService) RebidBid(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	buyerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	oldBidID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID ставки"})
	}

	var requestData struct {
		UnitPrice int64 `json:"unit_price"`
		Quantity  int   `json:"quantity"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Quantity <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Количество должно быть больше нуля"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Загружаем заменяемую ставку
	var oldBid models.Bid
	err = db.Pool.QueryRow(ctx, `
        SELECT id, product_id, product_name, unit_price, quantity,
               buyer_id, buyer_name, buyer_phone, seller_id, status
        FROM bids
        WHERE id = $1
    `, oldBidID).Scan(&oldBid.ID, &oldBid.ProductID, &oldBid.ProductName, &oldBid.UnitPrice,
		&oldBid.Quantity, &oldBid.BuyerID, &oldBid.BuyerName, &oldBid.BuyerPhone,
		&oldBid.SellerID, &oldBid.Status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Ставка не найдена"})
		}
		log.Printf("Ошибка запроса ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения ставки"})
	}

	if oldBid.BuyerID != buyerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Повторную ставку может сделать только автор исходной"})
	}

	if oldBid.Status != models.BidRejected {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Повторная ставка возможна только по отклонённой"})
	}

	// История ставок покупателя на этот товар: количество и время последней
	var hist policy.History
	var lastBidAt *time.Time
	err = db.Pool.QueryRow(ctx, `
        SELECT COUNT(*), MAX(created_at)
        FROM bids
        WHERE buyer_id = $1 AND product_id = $2
    `, buyerID, oldBid.ProductID).Scan(&hist.TotalBids, &lastBidAt)

	if err != nil {
		log.Printf("Ошибка запроса истории ставок: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки истории ставок"})
	}
	if lastBidAt != nil {
		hist.LastBidAt = *lastBidAt
	}

	// Актуальные остатки из каталога
	currentStock, stockErr := catalog.StockForProduct(ctx, oldBid.ProductID)
	stock := effectiveStock(currentStock, stockErr)

	result, err := policy.Evaluate(
		policy.Config{MaxRebids: s.cfg.BidPolicy.MaxRebids, Cooldown: s.cfg.BidPolicy.RebidCooldown},
		hist,
		oldBid.UnitPrice,
		policy.Request{UnitPrice: requestData.UnitPrice, Quantity: requestData.Quantity},
		stock,
		time.Now(),
	)

	if err != nil {
		var violation *policy.Violation
		if errors.As(err, &violation) {
			response := fiber.Map{
				"error": violation.Reason,
				"code":  violation.Code,
			}
			if violation.Code == policy.CodeCooldown {
				response["retry_after_seconds"] = int(violation.RetryAfter.Seconds()) + 1
			}
			return c.Status(fiber.StatusConflict).JSON(response)
		}
		log.Printf("Ошибка проверки политики: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки политики ставок"})
	}

	// Обе записи — новая ставка и пометка старой — фиксируются одной
	// транзакцией
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	newBid := models.Bid{
		ID:          uuid.New(),
		ProductID:   oldBid.ProductID,
		ProductName: oldBid.ProductName,
		UnitPrice:   requestData.UnitPrice,
		Quantity:    result.Quantity,
		BuyerID:     oldBid.BuyerID,
		BuyerName:   oldBid.BuyerName,
		BuyerPhone:  oldBid.BuyerPhone,
		SellerID:    oldBid.SellerID,
		Status:      models.BidPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO bids (id, product_id, product_name, unit_price, quantity,
                          buyer_id, buyer_name, buyer_phone, seller_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, newBid.ID, newBid.ProductID, newBid.ProductName, newBid.UnitPrice, newBid.Quantity,
		newBid.BuyerID, newBid.BuyerName, newBid.BuyerPhone, newBid.SellerID, newBid.Status,
		newBid.CreatedAt, newBid.UpdatedAt)

	if err != nil {
		log.Printf("Ошибка создания повторной ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения ставки"})
	}

	tag, err := tx.Exec(ctx, `
        UPDATE bids
        SET status = $1, superseded_by = $2, updated_at = $3
        WHERE id = $4 AND status = $5
    `, models.BidRebidded, newBid.ID, now, oldBidID, models.BidRejected)

	if err != nil {
		log.Printf("Ошибка пометки заменённой ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления исходной ставки"})
	}

	if tag.RowsAffected() == 0 {
		// Старая ставка успела изменить статус — откатываем и новую
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Исходная ставка уже заменена"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	response := fiber.Map{
		"success": true,
		"bid":     newBid,
	}
	if result.Adjusted {
		// Количество уменьшено до доступного остатка — сообщаем, но не
		// считаем это ошибкой
		response["adjusted"] = true
		response["available_stock"] = result.Quantity
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}
