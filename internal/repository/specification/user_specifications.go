package specification

import (
	"gorm.io/gorm"

	"github.com/google/uuid"
)

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type ByUserRole struct {
	Role string
}

func (s ByUserRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}

type RemindersEnabled struct{}

func (s RemindersEnabled) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("reminder_enabled = ? AND reminder_time <> ''", true)
}
