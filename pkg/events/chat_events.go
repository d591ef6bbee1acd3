package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeChatSessionCreated = "CHAT_SESSION_CREATED"
	TypeChatTurnCompleted  = "CHAT_TURN_COMPLETED"
	TypeChatMessageFlagged = "CHAT_MESSAGE_FLAGGED"
	TypeDailyReminder      = "DAILY_REMINDER"
)

// Payload keys follow the notification template conventions (user_id, entity_type, entity_id).

func NewChatSessionCreated(userId, sessionId uuid.UUID, mode, title string) BaseEvent {
	return BaseEvent{
		Type: TypeChatSessionCreated,
		Data: map[string]interface{}{
			"user_id":     userId.String(),
			"entity_type": "chat_session",
			"entity_id":   sessionId.String(),
			"mode":        mode,
			"title":       title,
		},
		OccurredAt: time.Now(),
	}
}

func NewChatTurnCompleted(userId, sessionId uuid.UUID, mode, title string, messageCount int) BaseEvent {
	return BaseEvent{
		Type: TypeChatTurnCompleted,
		Data: map[string]interface{}{
			"user_id":       userId.String(),
			"entity_type":   "chat_session",
			"entity_id":     sessionId.String(),
			"mode":          mode,
			"title":         title,
			"message_count": messageCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewChatMessageFlagged(userId, sessionId, messageId uuid.UUID, categories []string) BaseEvent {
	return BaseEvent{
		Type: TypeChatMessageFlagged,
		Data: map[string]interface{}{
			"user_id":     userId.String(),
			"entity_type": "chat_session",
			"entity_id":   sessionId.String(),
			"message_id":  messageId.String(),
			"categories":  categories,
		},
		OccurredAt: time.Now(),
	}
}

// NewDailyReminder carries the recipient address so consumers can email without a user lookup.
func NewDailyReminder(userId uuid.UUID, fullName, email string, emailEnabled bool, localDate string) BaseEvent {
	return BaseEvent{
		Type: TypeDailyReminder,
		Data: map[string]interface{}{
			"user_id":       userId.String(),
			"full_name":     fullName,
			"email":         email,
			"email_enabled": emailEnabled,
			"local_date":    localDate,
		},
		OccurredAt: time.Now(),
	}
}
