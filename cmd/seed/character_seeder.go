package main

import (
	"errors"
	"fmt"

	"companion-be/internal/catalog"
	"companion-be/internal/mapper"
	"companion-be/internal/model"

	"github.com/fatih/color"
	"gorm.io/gorm"
)

// SeedCharacters upserts by key. Characters absent from the catalog are left alone:
// sessions may still reference them, so retiring one means setting active: false.
func SeedCharacters(db *gorm.DB, cat *catalog.Catalog) error {
	m := mapper.NewChatMapper()

	for _, c := range cat.Entities() {
		row := m.CharacterToModel(c)

		var existing model.Character
		err := db.Where("key = ?", row.Key).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(row).Error; err != nil {
				return fmt.Errorf("create character %s: %w", row.Key, err)
			}
			color.Green("Created character: %s (%s)", row.Name, row.Key)
		case err != nil:
			return fmt.Errorf("load character %s: %w", row.Key, err)
		default:
			err := db.Model(&existing).Select("Name", "AvatarURL", "BasePrompt", "StyleTags", "IsActive").Updates(model.Character{
				Name:       row.Name,
				AvatarURL:  row.AvatarURL,
				BasePrompt: row.BasePrompt,
				StyleTags:  row.StyleTags,
				IsActive:   row.IsActive,
			}).Error
			if err != nil {
				return fmt.Errorf("update character %s: %w", row.Key, err)
			}
			color.Cyan("Updated character: %s (%s)", row.Name, row.Key)
		}
	}
	return nil
}
