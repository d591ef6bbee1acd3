package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatMessage is append-only; Metadata carries the role payload as {"type": ..., ...}.
type ChatMessage struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ChatSessionId uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_messages_session_cursor,priority:1"`
	Role          string         `gorm:"type:varchar(20);not null;index"`
	AuthorKey     *string        `gorm:"type:varchar(64)"`
	AuthorName    *string        `gorm:"type:varchar(120)"`
	Content       string         `gorm:"type:text;not null"`
	Metadata      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_chat_messages_session_cursor,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
