package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User rows are owned by the auth service; this backend only reads them.
type User struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName  string         `gorm:"type:varchar(255);not null"`
	Role      string         `gorm:"type:varchar(50);not null;default:'user'"`
	AvatarURL *string        `gorm:"type:text"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

type UserQuestionnaire struct {
	Id                 uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId             uuid.UUID                   `gorm:"type:uuid;uniqueIndex;not null"`
	AgeRange           string                      `gorm:"type:varchar(50)"`
	Situation          string                      `gorm:"type:text"`
	TopValues          datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	MainChallenge      string                      `gorm:"type:text"`
	Motivations        datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	SelfKnowledgeGoals datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt          time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt          time.Time                   `gorm:"autoUpdateTime"`
}

func (UserQuestionnaire) TableName() string {
	return "user_questionnaires"
}

type UserPreference struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	ResponseStyle   string    `gorm:"type:varchar(20);not null;default:'detailed'"`
	ReminderEnabled bool      `gorm:"not null;default:false;index"`
	ReminderTime    string    `gorm:"type:varchar(5)"`
	Timezone        string    `gorm:"type:varchar(64);not null;default:'UTC'"`
	EmailEnabled    bool      `gorm:"not null;default:false"`
	LastReminderAt  *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
