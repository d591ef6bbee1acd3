package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	Id        uuid.UUID
	Email     string
	FullName  string
	Role      UserRole
	AvatarURL *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ResponseStyle string

const (
	ResponseStyleTerse     ResponseStyle = "terse"
	ResponseStyleDetailed  ResponseStyle = "detailed"
	ResponseStyleSpiritual ResponseStyle = "spiritual"
	ResponseStylePractical ResponseStyle = "practical"
)

func (s ResponseStyle) IsValid() bool {
	switch s {
	case ResponseStyleTerse, ResponseStyleDetailed, ResponseStyleSpiritual, ResponseStylePractical:
		return true
	}
	return false
}

type UserQuestionnaire struct {
	Id                 uuid.UUID
	UserId             uuid.UUID
	AgeRange           string
	Situation          string
	TopValues          []string
	MainChallenge      string
	Motivations        []string
	SelfKnowledgeGoals []string
	UpdatedAt          time.Time
}

type UserPreference struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	ResponseStyle   ResponseStyle
	ReminderEnabled bool
	ReminderTime    string // HH:MM in Timezone
	Timezone        string
	EmailEnabled    bool
	LastReminderAt  *time.Time
	UpdatedAt       time.Time
}

// UserContext is the read-only view of the session owner used to build prompts.
type UserContext struct {
	UserId        uuid.UUID
	Name          string
	ResponseStyle ResponseStyle
	Profile       *UserQuestionnaire
}
