package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Character struct {
	Id         uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Key        string                      `gorm:"type:varchar(64);uniqueIndex;not null"`
	Name       string                      `gorm:"type:varchar(120);not null"`
	AvatarURL  string                      `gorm:"type:text"`
	BasePrompt string                      `gorm:"type:text;not null"`
	StyleTags  datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	IsActive   bool                        `gorm:"not null;default:true;index"`
	CreatedAt  time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt  time.Time                   `gorm:"autoUpdateTime"`
}

func (Character) TableName() string {
	return "characters"
}
