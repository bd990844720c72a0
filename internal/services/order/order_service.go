package order

import (
	"errors"
	"fmt"
	"log"
	"strings"
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

// Текст, подставляемый, когда ни одна ступень резолва местоположения не сработала
const locationUnavailable = "местоположение недоступно"

// OrderService представляет сервис подтверждённых заказов
type OrderService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	dispatcher *notify.Dispatcher
}

// NewOrderService создает новый экземпляр OrderService
func NewOrderService(cfg *config.Config, dispatcher *notify.Dispatcher) *OrderService {
	return &OrderService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		dispatcher: dispatcher,
	}
}

// resolvePickupLocation выбирает точку выдачи заказа по трём ступеням:
// место, выбранное при размещении товара → адрес и регион продавца →
// заглушка. Ни одна из ступеней не может привести к ошибке.
func resolvePickupLocation(productLocation, sellerAddress, sellerRegion string) string {
	if productLocation != "" {
		return productLocation
	}
	if sellerAddress != "" {
		if sellerRegion != "" {
			return sellerAddress + ", " + sellerRegion
		}
		return sellerAddress
	}
	return locationUnavailable
}

// buildTrackingCode строит человекочитаемый код отслеживания из id заказа.
// Используется, когда исходная запись товара уже удалена из каталога.
func buildTrackingCode(orderID uuid.UUID) string {
	compact := strings.ReplaceAll(orderID.String(), "-", "")
	return "AGRO-" + strings.ToUpper(compact[:8])
}

// ConfirmOrder создает подтверждённый заказ из принятой ставки.
// Подтверждение законно только для ставки в статусе accepted; перевод ставки
// в confirmed и создание заказа выполняются одной транзакцией, поэтому на
// одну ставку никогда не приходится больше одного заказа. Резолв
// местоположения и кода отслеживания всегда подставляет значение по
// умолчанию и не прерывает подтверждение.
func (s *OrderService) ConfirmOrder(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	buyerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		BidID string `json:"bid_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.BidID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID ставки не указан"})
	}

	bidID, err := uuid.Parse(requestData.BidID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID ставки"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var bid models.Bid
	err = db.Pool.QueryRow(ctx, `
        SELECT id, product_id, product_name, unit_price, quantity, buyer_id, seller_id, status
        FROM bids
        WHERE id = $1
    `, bidID).Scan(&bid.ID, &bid.ProductID, &bid.ProductName, &bid.UnitPrice, &bid.Quantity,
		&bid.BuyerID, &bid.SellerID, &bid.Status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Ставка не найдена"})
		}
		log.Printf("Ошибка запроса ставки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения ставки"})
	}

	if bid.BuyerID != buyerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Подтвердить заказ может только автор ставки"})
	}

	if !models.CanTransition(bid.Status, models.BidConfirmed) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Подтвердить можно только принятую ставку, текущий статус: %s", bid.Status),
		})
	}

	// Сумма всегда вычисляется из ставки
	amount := bid.TotalAmount()

	// Резолв точки выдачи: товар → адрес продавца → заглушка
	product := catalog.ProductInfo(ctx, bid.ProductID)
	var productLocation string
	if product != nil {
		productLocation = product.Location
	}
	var sellerAddress, sellerRegion string
	if seller := catalog.UserInfo(ctx, bid.SellerID); seller != nil {
		sellerAddress = seller.Address
		sellerRegion = seller.Region
	}
	pickupLocation := resolvePickupLocation(productLocation, sellerAddress, sellerRegion)

	now := time.Now()
	order := models.ConfirmedOrder{
		ID:             uuid.New(),
		BidID:          bid.ID,
		BuyerID:        bid.BuyerID,
		SellerID:       bid.SellerID,
		Amount:         amount,
		Status:         models.OrderConfirmed,
		PickupLocation: pickupLocation,
		Items: []models.OrderItem{{
			ProductID:   bid.ProductID,
			ProductName: bid.ProductName,
			Quantity:    bid.Quantity,
			UnitPrice:   bid.UnitPrice,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Запись товара уже удалена — выдаём код отслеживания вместо ссылки на неё
	if product == nil {
		order.TrackingCode = buildTrackingCode(order.ID)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE bids
        SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4
    `, models.BidConfirmed, now, bid.ID, models.BidAccepted)

	if err != nil {
		log.Printf("Ошибка перевода ставки в confirmed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления ставки"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Ставка уже подтверждена или изменила статус"})
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO confirmed_orders (id, bid_id, buyer_id, seller_id, amount, status,
                                      pickup_location, tracking_code, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, order.ID, order.BidID, order.BuyerID, order.SellerID, order.Amount, order.Status,
		order.PickupLocation, order.TrackingCode, order.CreatedAt, order.UpdatedAt)

	if err != nil {
		log.Printf("Ошибка создания заказа: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения заказа"})
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
            INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
            VALUES ($1, $2, $3, $4, $5)
        `, order.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice)

		if err != nil {
			log.Printf("Ошибка создания позиции заказа: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения позиций заказа"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	s.notifySeller(&bid, &order)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

// notifySeller отправляет продавцу уведомление о подтверждённом заказе.
// Сводное поздравление дедуплицируется по суточному окну, чтобы пакет
// подтверждений не засыпал продавца одинаковыми сообщениями.
func (s *OrderService) notifySeller(bid *models.Bid, order *models.ConfirmedOrder) {
	ctx, cancel := db.GetContext()
	defer cancel()

	s.dispatcher.Dispatch(ctx, models.Notification{
		UserID:  order.SellerID,
		Title:   "Заказ подтверждён",
		Message: fmt.Sprintf("Покупатель подтвердил заказ «%s» на сумму %d", bid.ProductName, order.Amount),
		Type:    models.NotifyPayment,
		Metadata: map[string]interface{}{
			"order_id":   order.ID.String(),
			"bid_id":     bid.ID.String(),
			"amount":     order.Amount,
			"buyer_name": bid.BuyerName,
		},
	})

	s.dispatcher.DispatchOnce(ctx, models.Notification{
		UserID:  order.SellerID,
		Title:   "Поздравляем с продажей!",
		Message: "У вас есть подтверждённые заказы за последние сутки",
		Type:    models.NotifyGeneral,
	}, 24*time.Hour)
}

// GetOrders возвращает список подтверждённых заказов с фильтрами
func (s *OrderService) GetOrders(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	query := `
        SELECT id, bid_id, buyer_id, seller_id, amount, status,
               pickup_location, COALESCE(tracking_code, ''), created_at, updated_at
        FROM confirmed_orders
        WHERE 1=1
    `
	var args []interface{}

	if buyerID := c.Query("buyer_id"); buyerID != "" {
		parsed, err := uuid.Parse(buyerID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат buyer_id"})
		}
		args = append(args, parsed)
		query += fmt.Sprintf(" AND buyer_id = $%d", len(args))
	}

	if sellerID := c.Query("seller_id"); sellerID != "" {
		parsed, err := uuid.Parse(sellerID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат seller_id"})
		}
		args = append(args, parsed)
		query += fmt.Sprintf(" AND seller_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Ошибка запроса заказов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения заказов"})
	}
	defer rows.Close()

	var orders []models.ConfirmedOrder
	for rows.Next() {
		var order models.ConfirmedOrder
		if err := rows.Scan(
			&order.ID,
			&order.BidID,
			&order.BuyerID,
			&order.SellerID,
			&order.Amount,
			&order.Status,
			&order.PickupLocation,
			&order.TrackingCode,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		order.Items = s.getOrderItems(c, order.ID)
		orders = append(orders, order)
	}

	return c.JSON(fiber.Map{
		"orders": orders,
		"count":  len(orders),
	})
}

// getOrderItems получает позиции заказа
func (s *OrderService) getOrderItems(c fiber.Ctx, orderID uuid.UUID) []models.OrderItem {
	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
        SELECT product_id, product_name, quantity, unit_price
        FROM order_items
        WHERE order_id = $1
    `, orderID)

	if err != nil {
		log.Printf("Ошибка запроса позиций заказа %s: %v", orderID, err)
		return nil
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			log.Printf("Ошибка сканирования позиции: %v", err)
			continue
		}
		items = append(items, item)
	}

	return items
}
