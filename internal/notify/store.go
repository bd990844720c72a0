package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agrolink/agrolink-api/internal/db"
	"github.com/agrolink/agrolink-api/internal/models"
)

// PGStore реализует Store поверх пула pgx
type PGStore struct{}

// NewPGStore создает новый экземпляр PGStore
func NewPGStore() *PGStore {
	return &PGStore{}
}

// Create сохраняет уведомление
func (s *PGStore) Create(ctx context.Context, n *models.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        INSERT INTO notifications (id, user_id, title, message, type, is_read, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, n.ID, n.UserID, n.Title, n.Message, n.Type, n.IsRead, metadata, n.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка записи уведомления: %w", err)
	}
	return nil
}

// HasRecentOfType проверяет, было ли у пользователя уведомление этого типа
// за последнее окно времени
func (s *PGStore) HasRecentOfType(ctx context.Context, userID uuid.UUID, t models.NotificationType, window time.Duration) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM notifications
            WHERE user_id = $1 AND type = $2 AND created_at > $3
        )
    `, userID, t, time.Now().Add(-window)).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("ошибка проверки уведомлений: %w", err)
	}
	return exists, nil
}
