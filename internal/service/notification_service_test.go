package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"companion-be/internal/model"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/repository/contract"
	"companion-be/pkg/events"
	pktNats "companion-be/pkg/nats"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeNotificationRepo struct {
	mu            sync.Mutex
	types         map[string]*model.NotificationType
	notifications []model.Notification
	admins        []model.User
}

func (r *fakeNotificationRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) GetNotificationsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	items, _, _ := r.GetNotificationsByUserID(ctx, userID, 0, 0)
	var count int64
	for _, n := range items {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].UserID == userID {
			r.notifications[i].IsRead = true
			return nil
		}
	}
	return contract.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].UserID == userID {
			r.notifications[i].IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) GetNotificationTypeByCode(ctx context.Context, code string) (*model.NotificationType, error) {
	if t, ok := r.types[code]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) GetUsersByRole(ctx context.Context, role string) ([]model.User, error) {
	return r.admins, nil
}

type fakeDelivery struct {
	mu        sync.Mutex
	sent      map[uuid.UUID][]model.Notification
	broadcast []model.Notification
}

func (d *fakeDelivery) Send(userID uuid.UUID, n model.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sent == nil {
		d.sent = map[uuid.UUID][]model.Notification{}
	}
	d.sent[userID] = append(d.sent[userID], n)
}

func (d *fakeDelivery) Broadcast(n model.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcast = append(d.broadcast, n)
}

type fakeMailer struct {
	reminders     []string
	notifications []string
	err           error
}

func (m *fakeMailer) SendDailyReminder(toEmail, fullName string) error {
	m.reminders = append(m.reminders, toEmail)
	return m.err
}

func (m *fakeMailer) SendNotification(toEmail, subject, message, actionURL string) error {
	m.notifications = append(m.notifications, toEmail+"|"+message+"|"+actionURL)
	return m.err
}

type fakeSubscriber struct {
	subject string
	handler pktNats.EventHandler
}

func (s *fakeSubscriber) Subscribe(subject, durable string, handler pktNats.EventHandler) error {
	s.subject = subject
	s.handler = handler
	return nil
}

func channels(c ...string) datatypes.JSON {
	raw, _ := json.Marshal(c)
	return datatypes.JSON(raw)
}

func newNotificationFixture() (*NotificationService, *fakeNotificationRepo, *fakeDelivery, *fakeMailer, *fakeSubscriber) {
	repo := &fakeNotificationRepo{types: map[string]*model.NotificationType{
		events.TypeChatTurnCompleted:  {Code: events.TypeChatTurnCompleted, DisplayName: "Resposta pronta", Template: "O conselho respondeu em {title}", TargetType: TargetSelf, Channels: channels("web"), IsActive: true},
		events.TypeDailyReminder:      {Code: events.TypeDailyReminder, DisplayName: "Lembrete diário", Template: "Olá {full_name}", TargetType: TargetSelf, Channels: channels("web", "email"), IsActive: true},
		events.TypeChatMessageFlagged: {Code: events.TypeChatMessageFlagged, DisplayName: "Mensagem sinalizada", Template: "Categorias: {categories}", TargetType: TargetAdmin, Channels: channels("web"), IsActive: true},
		"SYSTEM_BROADCAST":            {Code: "SYSTEM_BROADCAST", DisplayName: "Aviso", Template: "{message}", TargetType: TargetBroadcast, Channels: channels("web"), IsActive: true},
		"DISABLED":                    {Code: "DISABLED", TargetType: TargetSelf, IsActive: false},
	}}
	delivery := &fakeDelivery{}
	mail := &fakeMailer{}
	sub := &fakeSubscriber{}
	svc := NewNotificationService(repo, sub, delivery, mail, logger.NewNopLogger())
	return svc, repo, delivery, mail, sub
}

func TestNotificationServiceSelfTarget(t *testing.T) {
	svc, repo, delivery, mail, sub := newNotificationFixture()
	require.NoError(t, svc.Start())
	assert.Equal(t, "events.>", sub.subject)

	userId, sessionId := uuid.New(), uuid.New()
	event := events.NewChatTurnCompleted(userId, sessionId, "COUNCIL", "Ansiedade", 3)
	event.Type = pktNats.Subject(event.Type)
	require.NoError(t, sub.handler(context.Background(), event))

	require.Len(t, repo.notifications, 1)
	n := repo.notifications[0]
	assert.Equal(t, userId, n.UserID)
	assert.Equal(t, "O conselho respondeu em Ansiedade", n.Message)
	assert.Equal(t, "chat_session", n.EntityType)
	require.NotNil(t, n.EntityID)
	assert.Equal(t, sessionId, *n.EntityID)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(n.Metadata, &meta))
	assert.Equal(t, "/chat_sessions/"+sessionId.String(), meta["action_url"])

	assert.Len(t, delivery.sent[userId], 1)
	assert.Empty(t, mail.reminders)
	assert.Empty(t, mail.notifications)
}

func TestNotificationServiceDailyReminderEmail(t *testing.T) {
	svc, repo, _, mail, _ := newNotificationFixture()
	userId := uuid.New()

	require.NoError(t, svc.handleEvent(context.Background(), events.NewDailyReminder(userId, "Ana", "ana@example.com", true, "2026-03-10")))
	assert.Equal(t, []string{"ana@example.com"}, mail.reminders)
	require.Len(t, repo.notifications, 1)
	assert.NotContains(t, string(repo.notifications[0].Metadata), "ana@example.com")

	require.NoError(t, svc.handleEvent(context.Background(), events.NewDailyReminder(userId, "Ana", "ana@example.com", false, "2026-03-11")))
	assert.Len(t, mail.reminders, 1, "opted-out users get no email")
	assert.Len(t, repo.notifications, 2)
}

func TestNotificationServiceEmailFailureDoesNotFailEvent(t *testing.T) {
	svc, repo, _, mail, _ := newNotificationFixture()
	mail.err = errors.New("smtp down")

	err := svc.handleEvent(context.Background(), events.NewDailyReminder(uuid.New(), "Ana", "ana@example.com", true, "2026-03-10"))
	assert.NoError(t, err)
	assert.Len(t, repo.notifications, 1)
}

func TestNotificationServiceAdminAndBroadcast(t *testing.T) {
	svc, repo, delivery, _, _ := newNotificationFixture()
	admin := model.User{Id: uuid.New()}
	repo.admins = []model.User{admin}

	flagged := events.NewChatMessageFlagged(uuid.New(), uuid.New(), uuid.New(), []string{"violence"})
	require.NoError(t, svc.handleEvent(context.Background(), flagged))
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, admin.Id, repo.notifications[0].UserID)

	broadcast := events.BaseEvent{Type: "SYSTEM_BROADCAST", Data: map[string]interface{}{"message": "Manutenção às 22h"}}
	require.NoError(t, svc.handleEvent(context.Background(), broadcast))
	require.Len(t, delivery.broadcast, 1)
	assert.Equal(t, "Manutenção às 22h", delivery.broadcast[0].Message)
	assert.Len(t, repo.notifications, 1, "broadcasts are not stored")
}

func TestNotificationServiceIgnoresUnknownAndInactive(t *testing.T) {
	svc, repo, delivery, _, _ := newNotificationFixture()

	require.NoError(t, svc.handleEvent(context.Background(), events.BaseEvent{Type: "UNKNOWN", Data: map[string]interface{}{}}))
	require.NoError(t, svc.handleEvent(context.Background(), events.BaseEvent{Type: "DISABLED", Data: map[string]interface{}{"user_id": uuid.NewString()}}))
	assert.Empty(t, repo.notifications)
	assert.Empty(t, delivery.sent)
}

func TestNotificationServiceMarkAsReadIsOwnerScoped(t *testing.T) {
	svc, repo, _, _, _ := newNotificationFixture()
	owner := uuid.New()
	require.NoError(t, svc.handleEvent(context.Background(), events.NewChatTurnCompleted(owner, uuid.New(), "COUNCIL", "t", 1)))
	id := repo.notifications[0].ID

	err := svc.MarkAsRead(context.Background(), uuid.New(), id)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, svc.MarkAsRead(context.Background(), owner, id))
	count, err := svc.GetUnreadCount(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
