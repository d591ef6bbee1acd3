package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"companion-be/internal/model"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/pkg/mailer"
	"companion-be/internal/repository/contract"
	"companion-be/pkg/events"
	pktNats "companion-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TargetSelf      = "SELF"
	TargetAdmin     = "ADMIN"
	TargetBroadcast = "BROADCAST"

	ChannelEmail = "email"
)

// NotificationDelivery pushes real-time updates. Implemented by the websocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
	Broadcast(notification model.Notification)
}

// EventSubscriber is satisfied by *nats.Subscriber.
type EventSubscriber interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) error
}

type NotificationService struct {
	repo       contract.NotificationRepository
	subscriber EventSubscriber
	delivery   NotificationDelivery
	mailer     mailer.IEmailService
	logger     logger.ILogger
}

func NewNotificationService(repo contract.NotificationRepository, sub EventSubscriber, delivery NotificationDelivery, mail mailer.IEmailService, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		subscriber: sub,
		delivery:   delivery,
		mailer:     mail,
		logger:     log,
	}
}

// Start begins consuming every event subject with a durable consumer.
func (s *NotificationService) Start() error {
	if s.subscriber == nil {
		return errors.New("notification service has no subscriber")
	}
	if err := s.subscriber.Subscribe(pktNats.SubjectPrefix+">", "notif-service-worker", s.handleEvent); err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("NotificationService", "Notification service started", map[string]interface{}{"subject": pktNats.SubjectPrefix + ">"})
	return nil
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), pktNats.SubjectPrefix)
	s.logger.Info("NotificationService", "Processing event", map[string]interface{}{"type": typeCode})

	config, err := s.repo.GetNotificationTypeByCode(ctx, typeCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug("NotificationService", "No notification type for event", map[string]interface{}{"type": typeCode})
			return nil
		}
		return err
	}
	if !config.IsActive {
		return nil
	}

	if config.TargetType == TargetBroadcast {
		// Push only; broadcasts are not stored per user.
		if s.delivery != nil {
			s.delivery.Broadcast(s.buildNotification(uuid.Nil, config, event))
		}
		return nil
	}

	recipients, err := s.resolveRecipients(ctx, config, event)
	if err != nil {
		s.logger.Error("NotificationService", "Error resolving recipients", map[string]interface{}{
			"type":  typeCode,
			"error": err.Error(),
		})
		return err
	}

	for _, userID := range recipients {
		notif := s.buildNotification(userID, config, event)

		if err := s.repo.CreateNotification(ctx, &notif); err != nil {
			s.logger.Error("NotificationService", "Error saving notification", map[string]interface{}{
				"user_id": userID.String(),
				"error":   err.Error(),
			})
			continue
		}

		if s.delivery != nil {
			s.delivery.Send(userID, notif)
		}
	}

	s.sendEmail(config, event)
	return nil
}

func (s *NotificationService) resolveRecipients(ctx context.Context, config *model.NotificationType, event events.Event) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID

	switch config.TargetType {
	case TargetSelf:
		raw, _ := event.Payload()["user_id"].(string)
		uid, err := uuid.Parse(raw)
		if err != nil {
			s.logger.Warn("NotificationService", "SELF target without a valid user_id", map[string]interface{}{"type": config.Code})
			return nil, nil
		}
		userIDs = append(userIDs, uid)

	case TargetAdmin:
		admins, err := s.repo.GetUsersByRole(ctx, "admin")
		if err != nil {
			return nil, err
		}
		for _, u := range admins {
			userIDs = append(userIDs, u.Id)
		}
	}

	return userIDs, nil
}

// sendEmail mails the event owner when the type has the email channel and the owner opted in.
func (s *NotificationService) sendEmail(config *model.NotificationType, event events.Event) {
	if s.mailer == nil || !hasChannel(config.Channels, ChannelEmail) {
		return
	}

	payload := event.Payload()
	to, _ := payload["email"].(string)
	enabled, _ := payload["email_enabled"].(bool)
	if to == "" || !enabled {
		return
	}

	var err error
	if config.Code == events.TypeDailyReminder {
		name, _ := payload["full_name"].(string)
		err = s.mailer.SendDailyReminder(to, name)
	} else {
		err = s.mailer.SendNotification(to, config.DisplayName, renderTemplate(config.Template, payload), actionURL(payload))
	}
	if err != nil {
		s.logger.Warn("NotificationService", "Email delivery failed", map[string]interface{}{
			"type":  config.Code,
			"error": err.Error(),
		})
	}
}

func (s *NotificationService) buildNotification(userID uuid.UUID, config *model.NotificationType, event events.Event) model.Notification {
	payload := event.Payload()

	entityType, _ := payload["entity_type"].(string)
	var entityID *uuid.UUID
	if raw, ok := payload["entity_id"].(string); ok {
		if eid, err := uuid.Parse(raw); err == nil {
			entityID = &eid
		}
	}

	meta := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		if k == "email" {
			continue
		}
		meta[k] = v
	}
	if link := actionURL(payload); link != "" {
		meta["action_url"] = link
	}
	metaJSON, _ := json.Marshal(meta)

	return model.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		TypeCode:   config.Code,
		Title:      config.DisplayName,
		Message:    renderTemplate(config.Template, payload),
		Metadata:   datatypes.JSON(metaJSON),
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}
}

// renderTemplate replaces {key} placeholders with payload values.
func renderTemplate(template string, payload map[string]interface{}) string {
	msg := template
	for k, v := range payload {
		msg = strings.ReplaceAll(msg, fmt.Sprintf("{%s}", k), fmt.Sprintf("%v", v))
	}
	return msg
}

func actionURL(payload map[string]interface{}) string {
	entityType, _ := payload["entity_type"].(string)
	entityID, _ := payload["entity_id"].(string)
	if entityType == "" || entityID == "" {
		return ""
	}
	return fmt.Sprintf("/%ss/%s", entityType, entityID)
}

func hasChannel(raw datatypes.JSON, channel string) bool {
	var channels []string
	if err := json.Unmarshal(raw, &channels); err != nil {
		return false
	}
	for _, c := range channels {
		if c == channel {
			return true
		}
	}
	return false
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperror.Internal("failed to load notifications", err)
	}
	return items, total, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, apperror.Internal("failed to count notifications", err)
	}
	return count, nil
}

// MarkAsRead only touches notifications owned by userID.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, userID, id); err != nil {
		if errors.Is(err, contract.ErrNotificationNotFound) {
			return apperror.NotFound("notification not found")
		}
		return apperror.Internal("failed to mark notification as read", err)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return apperror.Internal("failed to mark notifications as read", err)
	}
	return nil
}
