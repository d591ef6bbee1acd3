package main

import (
	"fmt"

	"companion-be/internal/catalog"
	"companion-be/internal/model"

	"github.com/fatih/color"
	"gorm.io/gorm"
)

// SeedNotificationTypes populates the registry; existing codes get the catalog's template and channels.
func SeedNotificationTypes(db *gorm.DB, cat *catalog.Catalog) error {
	for _, t := range cat.NotificationModels() {
		var row model.NotificationType
		err := db.Where("code = ?", t.Code).
			Assign(model.NotificationType{
				DisplayName: t.DisplayName,
				Template:    t.Template,
				TargetType:  t.TargetType,
				Priority:    t.Priority,
				Channels:    t.Channels,
			}).
			FirstOrCreate(&row, model.NotificationType{Code: t.Code, IsActive: t.IsActive}).Error
		if err != nil {
			return fmt.Errorf("seed notification type %s: %w", t.Code, err)
		}
		if err := db.Model(&row).Update("is_active", t.IsActive).Error; err != nil {
			return fmt.Errorf("update notification type %s: %w", t.Code, err)
		}
		color.Green("Seeded notification type: %s", t.Code)
	}
	return nil
}
