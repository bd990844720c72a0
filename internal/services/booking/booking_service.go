package booking

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
	"github.com/agrolink/agrolink-api/internal/utils"
)

// BookingService представляет сервис бронирования транспорта
type BookingService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	dispatcher *notify.Dispatcher
}

// NewBookingService создает новый экземпляр BookingService
func NewBookingService(cfg *config.Config, dispatcher *notify.Dispatcher) *BookingService {
	return &BookingService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		dispatcher: dispatcher,
	}
}

// CreateBooking создает заявку фермера на транспорт перевозчика
func (s *BookingService) CreateBooking(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	farmerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		TransporterID string `json:"transporter_id"`
		VehicleID     string `json:"vehicle_id"`
		VehicleName   string `json:"vehicle_name"`
		FarmerName    string `json:"farmer_name"`
		PickupPoint   string `json:"pickup_point"`
		DropPoint     string `json:"drop_point"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	var missing []string
	if requestData.TransporterID == "" {
		missing = append(missing, "transporter_id")
	}
	if requestData.VehicleID == "" {
		missing = append(missing, "vehicle_id")
	}
	if requestData.FarmerName == "" {
		missing = append(missing, "farmer_name")
	}
	if requestData.PickupPoint == "" {
		missing = append(missing, "pickup_point")
	}
	if requestData.DropPoint == "" {
		missing = append(missing, "drop_point")
	}
	if len(missing) > 0 {
		validationErr := &models.ValidationError{Fields: missing}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":          validationErr.Error(),
			"missing_fields": missing,
		})
	}

	transporterID, err := uuid.Parse(requestData.TransporterID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID перевозчика"})
	}

	vehicleID, err := uuid.Parse(requestData.VehicleID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID транспорта"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	booking := models.Booking{
		ID:            uuid.New(),
		FarmerID:      farmerID,
		FarmerName:    requestData.FarmerName,
		TransporterID: transporterID,
		VehicleID:     vehicleID,
		VehicleName:   requestData.VehicleName,
		PickupPoint:   requestData.PickupPoint,
		DropPoint:     requestData.DropPoint,
		Status:        models.BookingPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	_, err = db.Pool.Exec(ctx, `
        INSERT INTO bookings (id, farmer_id, farmer_name, transporter_id, vehicle_id,
                              vehicle_name, pickup_point, drop_point, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, booking.ID, booking.FarmerID, booking.FarmerName, booking.TransporterID, booking.VehicleID,
		booking.VehicleName, booking.PickupPoint, booking.DropPoint, booking.Status,
		booking.CreatedAt, booking.UpdatedAt)

	if err != nil {
		log.Printf("Ошибка создания бронирования: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения бронирования"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"booking": booking,
	})
}

// AcceptBooking принимает заявку (действие перевозчика)
func (s *BookingService) AcceptBooking(c fiber.Ctx) error {
	return s.decideBooking(c, models.BookingAccepted)
}

// RejectBooking отклоняет заявку (действие перевозчика)
func (s *BookingService) RejectBooking(c fiber.Ctx) error {
	return s.decideBooking(c, models.BookingRejected)
}

// decideBooking выполняет решение перевозчика по заявке в статусе pending
// и отправляет фермеру уведомление по общему пути доставки
func (s *BookingService) decideBooking(c fiber.Ctx, newStatus models.BookingStatus) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	transporterID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	bookingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID бронирования"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var booking models.Booking
	err = db.Pool.QueryRow(ctx, `
        SELECT id, farmer_id, transporter_id, vehicle_name, status
        FROM bookings
        WHERE id = $1
    `, bookingID).Scan(&booking.ID, &booking.FarmerID, &booking.TransporterID,
		&booking.VehicleName, &booking.Status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Бронирование не найдено"})
		}
		log.Printf("Ошибка запроса бронирования: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения бронирования"})
	}

	if booking.TransporterID != transporterID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Только перевозчик может принять или отклонить заявку"})
	}

	if booking.Status != models.BookingPending {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Заявка уже обработана"})
	}

	tag, err := db.Pool.Exec(ctx, `
        UPDATE bookings
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
    `, newStatus, bookingID, models.BookingPending)

	if err != nil {
		log.Printf("Ошибка обновления статуса бронирования: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления бронирования"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Статус заявки уже изменён"})
	}

	notifType := models.NotifyBookingAccepted
	title := "Бронирование подтверждено"
	message := fmt.Sprintf("Перевозчик подтвердил бронирование «%s»", booking.VehicleName)
	if newStatus == models.BookingRejected {
		notifType = models.NotifyBookingRejected
		title = "Бронирование отклонено"
		message = fmt.Sprintf("Перевозчик отклонил бронирование «%s»", booking.VehicleName)
	}

	s.dispatcher.Dispatch(ctx, models.Notification{
		UserID:  booking.FarmerID,
		Title:   title,
		Message: message,
		Type:    notifType,
		Metadata: map[string]interface{}{
			"booking_id":   booking.ID.String(),
			"vehicle_name": booking.VehicleName,
		},
	})

	return c.JSON(fiber.Map{
		"success":        true,
		"booking_id":     bookingID,
		"status":         newStatus,
		"modified_count": tag.RowsAffected(),
	})
}

// GetBookings возвращает список бронирований с фильтрами
func (s *BookingService) GetBookings(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	query := `
        SELECT id, farmer_id, farmer_name, transporter_id, vehicle_id,
               vehicle_name, pickup_point, drop_point, status, created_at, updated_at
        FROM bookings
        WHERE 1=1
    `
	var args []interface{}

	if transporterID := c.Query("transporter_id"); transporterID != "" {
		parsed, err := uuid.Parse(transporterID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат transporter_id"})
		}
		args = append(args, parsed)
		query += fmt.Sprintf(" AND transporter_id = $%d", len(args))
	}

	if farmerID := c.Query("farmer_id"); farmerID != "" {
		parsed, err := uuid.Parse(farmerID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат farmer_id"})
		}
		args = append(args, parsed)
		query += fmt.Sprintf(" AND farmer_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Ошибка запроса бронирований: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения бронирований"})
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		if err := rows.Scan(
			&booking.ID,
			&booking.FarmerID,
			&booking.FarmerName,
			&booking.TransporterID,
			&booking.VehicleID,
			&booking.VehicleName,
			&booking.PickupPoint,
			&booking.DropPoint,
			&booking.Status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}
		bookings = append(bookings, booking)
	}

	return c.JSON(fiber.Map{
		"bookings": bookings,
		"count":    len(bookings),
	})
}
