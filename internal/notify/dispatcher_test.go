package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/agrolink-api/internal/models"
	ws "github.com/agrolink/agrolink-api/internal/websocket"
)

type fakeStore struct {
	created   []models.Notification
	failNext  bool
	hasRecent bool
}

func (s *fakeStore) Create(ctx context.Context, n *models.Notification) error {
	if s.failNext {
		return errors.New("база недоступна")
	}
	s.created = append(s.created, *n)
	return nil
}

func (s *fakeStore) HasRecentOfType(ctx context.Context, userID uuid.UUID, t models.NotificationType, window time.Duration) (bool, error) {
	return s.hasRecent, nil
}

type fakePresence struct {
	online bool
	pushed []ws.Event
}

func (p *fakePresence) SendToUser(userID string, event ws.Event) bool {
	if !p.online {
		return false
	}
	p.pushed = append(p.pushed, event)
	return true
}

func TestDispatch_PersistsThenPushes(t *testing.T) {
	store := &fakeStore{}
	presence := &fakePresence{online: true}
	d := NewDispatcher(store, presence)

	buyer := uuid.New()
	d.Dispatch(context.Background(), models.Notification{
		UserID:  buyer,
		Title:   "Ставка принята",
		Message: "Фермер принял вашу ставку",
		Type:    models.NotifyBidAccepted,
	})

	// Запись и push отражают одно и то же событие
	require.Len(t, store.created, 1)
	require.Len(t, presence.pushed, 1)
	assert.Equal(t, models.NotifyBidAccepted, store.created[0].Type)
	assert.Equal(t, ws.EventNewNotification, presence.pushed[0].Type)
	assert.Equal(t, buyer.String(), presence.pushed[0].UserID)
	assert.Contains(t, string(presence.pushed[0].Payload), store.created[0].ID.String())
}

func TestDispatch_OfflineRecipientStillPersisted(t *testing.T) {
	store := &fakeStore{}
	presence := &fakePresence{online: false}
	d := NewDispatcher(store, presence)

	d.Dispatch(context.Background(), models.Notification{
		UserID: uuid.New(),
		Type:   models.NotifyBidRejected,
	})

	// Недоставленный push не влияет на корректность: запись доступна через опрос
	assert.Len(t, store.created, 1)
	assert.Empty(t, presence.pushed)
}

func TestDispatch_PersistenceFailureSkipsPush(t *testing.T) {
	store := &fakeStore{failNext: true}
	presence := &fakePresence{online: true}
	d := NewDispatcher(store, presence)

	d.Dispatch(context.Background(), models.Notification{
		UserID: uuid.New(),
		Type:   models.NotifyBidAccepted,
	})

	// Без записи в БД push не делается, ошибка не всплывает наружу
	assert.Empty(t, store.created)
	assert.Empty(t, presence.pushed)
}

func TestDispatchOnce_SuppressesDuplicates(t *testing.T) {
	store := &fakeStore{hasRecent: true}
	presence := &fakePresence{online: true}
	d := NewDispatcher(store, presence)

	d.DispatchOnce(context.Background(), models.Notification{
		UserID: uuid.New(),
		Type:   models.NotifyPayment,
	}, 24*time.Hour)

	assert.Empty(t, store.created)

	store.hasRecent = false
	d.DispatchOnce(context.Background(), models.Notification{
		UserID: uuid.New(),
		Type:   models.NotifyPayment,
	}, 24*time.Hour)

	assert.Len(t, store.created, 1)
}
