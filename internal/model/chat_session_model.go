package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id           uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       uuid.UUID         `gorm:"type:uuid;not null;index:idx_chat_sessions_user_updated,priority:1"`
	Mode         string            `gorm:"type:varchar(20);not null"`
	Title        string            `gorm:"type:varchar(120);not null"`
	IsClosed     bool              `gorm:"not null;default:false"`
	CreatedAt    time.Time         `gorm:"autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime;index:idx_chat_sessions_user_updated,priority:2"`
	Participants []ChatParticipant `gorm:"foreignKey:ChatSessionId;constraint:OnDelete:CASCADE"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

type ChatParticipant struct {
	Id            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_chat_participants_order,priority:1"`
	CharacterId   uuid.UUID  `gorm:"type:uuid;not null;index"`
	OrderIndex    int        `gorm:"not null;uniqueIndex:idx_chat_participants_order,priority:2"`
	Character     *Character `gorm:"foreignKey:CharacterId"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}
