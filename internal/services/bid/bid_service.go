package bid

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agrolink/agrolink-api/internal/config"
	"github.com/agrolink/agrolink-api/internal/db"
	"github.com/agrolink/agrolink-api/internal/models"
	"github.com/agrolink/agrolink-api/internal/notify"
	"github.com/agrolink/agrolink-api/internal/services/catalog"
	"github.com/agrolink/agrolink-api/internal/utils"
)

// BidService представляет сервис для работы с ценовыми предложениями
type BidService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	dispatcher *notify.Dispatcher
}

// NewBidService создает новый экземпляр BidService
func NewBidService(cfg *config.Config, dispatcher *notify.Dispatcher) *BidService {
	return &BidService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		dispatcher: dispatcher,
	}
}

// SubmitBid создает новую ставку покупателя
func (s *BidService) SubmitBid(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	buyerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		ProductID   string `json:"product_id"`
		ProductName string `json:"product_name"`
		UnitPrice   int64  `json:"unit_price"`
		Quantity    int    `json:"quantity"`
		BuyerName   string `json:"buyer_name"`
		BuyerPhone  string `json:"buyer_phone"`
		SellerID    string `json:"seller_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	// Собираем список отсутствующих обязательных полей
	var missing []string
	if requestData.ProductID == "" {
		missing = append(missing, "product_id")
	}
	if requestData.ProductName == "" {
		missing = append(missing, "product_name")
	}
	if requestData.UnitPrice <= 0 {
		missing = append(missing, "unit_price")
	}
	if requestData.Quantity <= 0 {
		missing = append(missing, "quantity")
	}
	if requestData.BuyerName == "" {
		missing = append(missing, "buyer_name")
	}
	if requestData.BuyerPhone == "" {
		missing = append(missing, "buyer_phone")
	}
	if requestData.SellerID == "" {
		missing = append(missing, "seller_id")
	}
	if len(missing) > 0 {
		validationErr := &models.ValidationError{Fields: missing}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":          validationErr.Error(),
			"missing_fields": missing,
		})
	}

	productID, err := uuid.Parse(requestData.ProductID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID товара"})
	}

	sellerID, err := uuid.Parse(requestData.SellerID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID продавца"})
	}

	if sellerID == buyerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя сделать ставку на собственный товар"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	bid := models.Bid{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: requestData.ProductName,
		UnitPrice:   requestData.UnitPrice,
		Quantity:    requestData.Quantity,
		BuyerID:     buyerID,
		BuyerName:   requestData.BuyerName,
		BuyerPhone:  requestData.BuyerPhone,
		SellerID:    sellerID,
		Status:      models.BidPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	_, err = db.Pool.Exec(ctx, `
        INSERT INTO bids (id, product_id, product_name, unit_price, quantity,
                          buyer_id, buyer_name, buyer_phone, seller_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, bid.ID, bid.ProductID, bid.ProductName, bid.UnitPrice, bid.Quantity,
		bid.BuyerID, bid.BuyerName, bid.BuyerPhone, bid.SellerID, bid.Status, bid.CreatedAt, bid.UpdatedAt)

	if err != nil {
		log.Printf("Ошибка создания ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения ставки"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"bid":     bid,
	})
}

// AcceptBid принимает ставку (действие продавца)
func (s *BidService) AcceptBid(c fiber.Ctx) error {
	return s.decideBid(c, models.BidAccepted)
}

// RejectBid отклоняет ставку (действие продавца)
func (s *BidService) RejectBid(c fiber.Ctx) error {
	return s.decideBid(c, models.BidRejected)
}

// decideBid выполняет решение продавца по ставке в статусе pending.
// Уведомление покупателю отправляется после фиксации нового статуса;
// сбой в пути уведомления не отменяет само решение.
func (s *BidService) decideBid(c fiber.Ctx, newStatus models.BidStatus) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	sellerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	bidID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID ставки"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var bid models.Bid
	err = db.Pool.QueryRow(ctx, `
        SELECT id, product_id, product_name, unit_price, quantity, buyer_id, buyer_name, seller_id, status
        FROM bids
        WHERE id = $1
    `, bidID).Scan(&bid.ID, &bid.ProductID, &bid.ProductName, &bid.UnitPrice, &bid.Quantity,
		&bid.BuyerID, &bid.BuyerName, &bid.SellerID, &bid.Status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Ставка не найдена"})
		}
		log.Printf("Ошибка запроса ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения ставки"})
	}

	if bid.SellerID != sellerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Только продавец может принять или отклонить ставку"})
	}

	if !models.CanTransition(bid.Status, newStatus) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Недопустимый переход статуса: %s → %s", bid.Status, newStatus),
		})
	}

	// Условие по статусу в WHERE защищает от гонки двух одновременных решений
	tag, err := db.Pool.Exec(ctx, `
        UPDATE bids
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
    `, newStatus, bidID, models.BidPending)

	if err != nil {
		log.Printf("Ошибка обновления статуса ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления статуса ставки"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Статус ставки уже изменён"})
	}

	s.notifyBuyer(&bid, newStatus)

	return c.JSON(fiber.Map{
		"success":        true,
		"bid_id":         bidID,
		"status":         newStatus,
		"modified_count": tag.RowsAffected(),
	})
}

// notifyBuyer отправляет покупателю уведомление о решении продавца
func (s *BidService) notifyBuyer(bid *models.Bid, newStatus models.BidStatus) {
	ctx, cancel := db.GetContext()
	defer cancel()

	notifType := models.NotifyBidAccepted
	title := "Ставка принята"
	message := fmt.Sprintf("Фермер принял вашу ставку на «%s»: %d × %d", bid.ProductName, bid.UnitPrice, bid.Quantity)
	if newStatus == models.BidRejected {
		notifType = models.NotifyBidRejected
		title = "Ставка отклонена"
		message = fmt.Sprintf("Фермер отклонил вашу ставку на «%s». Вы можете предложить другую цену", bid.ProductName)
	}

	metadata := map[string]interface{}{
		"bid_id":       bid.ID.String(),
		"product_id":   bid.ProductID.String(),
		"product_name": bid.ProductName,
		"unit_price":   bid.UnitPrice,
		"quantity":     bid.Quantity,
		"amount":       bid.TotalAmount(),
	}
	if seller := catalog.UserInfo(ctx, bid.SellerID); seller != nil {
		metadata["seller_name"] = seller.Name
	}

	s.dispatcher.Dispatch(ctx, models.Notification{
		UserID:   bid.BuyerID,
		Title:    title,
		Message:  message,
		Type:     notifType,
		Metadata: metadata,
	})
}

// GetBids возвращает список ставок с фильтрами по продавцу, покупателю и статусу
func (s *BidService) GetBids(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	query := `
        SELECT id, product_id, product_name, unit_price, quantity,
               buyer_id, buyer_name, buyer_phone, seller_id, status, superseded_by, created_at, updated_at
        FROM bids
        WHERE 1=1
    `
	var args []interface{}

	if farmerID := c.Query("farmer_id"); farmerID != "" {
		parsed, err := uuid.Parse(farmerID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат farmer_id"})
		}
		args = append(args, parsed)
		query += fmt.Sprintf(" AND seller_id = $%d", len(args))
	}

	if buyerID := c.Query("buyer_id"); buyerID != "" {
		parsed, err := uuid.Parse(buyerID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат buyer_id"})
		}
		args = append(args, parsed)
		query += fmt.Sprintf(" AND buyer_id = $%d", len(args))
	}

	if status := c.Query("status"); status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Ошибка запроса ставок: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения ставок"})
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var bid models.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.ProductID,
			&bid.ProductName,
			&bid.UnitPrice,
			&bid.Quantity,
			&bid.BuyerID,
			&bid.BuyerName,
			&bid.BuyerPhone,
			&bid.SellerID,
			&bid.Status,
			&bid.SupersededBy,
			&bid.CreatedAt,
			&bid.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}
		bids = append(bids, bid)
	}

	return c.JSON(fiber.Map{
		"bids":  bids,
		"count": len(bids),
	})
}

// DeleteBid удаляет отклонённую ставку. Жёсткое удаление разрешено только
// покупателю и только если товара больше нет в наличии — во всех остальных
// случаях отклонённая ставка заменяется повторной и сохраняется в истории.
func (s *BidService) DeleteBid(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	buyerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	bidID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID ставки"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var bid models.Bid
	err = db.Pool.QueryRow(ctx, `
        SELECT id, product_id, buyer_id, status FROM bids WHERE id = $1
    `, bidID).Scan(&bid.ID, &bid.ProductID, &bid.BuyerID, &bid.Status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Ставка не найдена"})
		}
		log.Printf("Ошибка запроса ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения ставки"})
	}

	if bid.BuyerID != buyerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Удалить ставку может только её автор"})
	}

	if bid.Status != models.BidRejected {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Удалить можно только отклонённую ставку"})
	}

	// Удаление разрешено только при подтверждённом нулевом остатке
	stock, err := catalog.StockForProduct(ctx, bid.ProductID)
	if err != nil {
		var notFound *models.NotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("Ошибка проверки остатков: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки остатков"})
		}
		// Товар удалён из каталога — считаем остаток нулевым
		stock = 0
	}

	if stock > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Товар ещё в наличии, вместо удаления предложите новую цену",
			"stock": stock,
		})
	}

	_, err = db.Pool.Exec(ctx, `DELETE FROM bids WHERE id = $1`, bidID)
	if err != nil {
		log.Printf("Ошибка удаления ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления ставки"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"bid_id":  bidID,
	})
}
