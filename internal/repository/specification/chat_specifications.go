package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

type ByMessageRole struct {
	Role string
}

func (s ByMessageRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}

type ExcludeMessageRoles struct {
	Roles []string
}

func (s ExcludeMessageRoles) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Roles) == 0 {
		return db
	}
	return db.Where("role NOT IN ?", s.Roles)
}

// MessagesBefore keeps rows strictly older than (CreatedAt, Id) in keyset order.
type MessagesBefore struct {
	CreatedAt time.Time
	Id        uuid.UUID
}

func (s MessagesBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", s.CreatedAt, s.CreatedAt, s.Id)
}

// NewestFirst orders messages by (created_at, id) descending.
type NewestFirst struct{}

func (s NewestFirst) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

type ByCharacterKeys struct {
	Keys []string
}

func (s ByCharacterKeys) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("key IN ?", s.Keys)
}

type ActiveCharacters struct{}

func (s ActiveCharacters) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

type WithCharacter struct{}

func (s WithCharacter) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Character")
}
