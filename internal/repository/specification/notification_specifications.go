package specification

import "gorm.io/gorm"

type UnreadNotifications struct{}

func (s UnreadNotifications) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_read = ?", false)
}

// ActiveNotificationType matches a registry row by code, skipping retired types.
type ActiveNotificationType struct {
	Code string
}

func (s ActiveNotificationType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("code = ? AND is_active = ?", s.Code, true)
}
