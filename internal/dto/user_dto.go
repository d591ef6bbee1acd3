package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserProfileResponse struct {
	Id            uuid.UUID                  `json:"id"`
	Email         string                     `json:"email"`
	FullName      string                     `json:"full_name"`
	Role          string                     `json:"role"`
	AvatarURL     string                     `json:"avatar_url,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	Preferences   UserPreferenceResponse     `json:"preferences"`
	Questionnaire *UserQuestionnaireResponse `json:"questionnaire,omitempty"`
}

type UpdatePreferencesRequest struct {
	ResponseStyle   string `json:"response_style" validate:"omitempty,oneof=terse detailed spiritual practical"`
	ReminderEnabled *bool  `json:"reminder_enabled"`
	ReminderTime    string `json:"reminder_time" validate:"omitempty,datetime=15:04"`
	Timezone        string `json:"timezone" validate:"omitempty,timezone"`
	EmailEnabled    *bool  `json:"email_enabled"`
}

type UserPreferenceResponse struct {
	ResponseStyle   string     `json:"response_style"`
	ReminderEnabled bool       `json:"reminder_enabled"`
	ReminderTime    string     `json:"reminder_time,omitempty"`
	Timezone        string     `json:"timezone"`
	EmailEnabled    bool       `json:"email_enabled"`
	LastReminderAt  *time.Time `json:"last_reminder_at,omitempty"`
}

type UpdateQuestionnaireRequest struct {
	AgeRange           string   `json:"age_range" validate:"max=30"`
	Situation          string   `json:"situation" validate:"max=200"`
	TopValues          []string `json:"top_values" validate:"max=5,dive,max=60"`
	MainChallenge      string   `json:"main_challenge" validate:"max=300"`
	Motivations        []string `json:"motivations" validate:"max=5,dive,max=100"`
	SelfKnowledgeGoals []string `json:"self_knowledge_goals" validate:"max=5,dive,max=100"`
}

type UserQuestionnaireResponse struct {
	AgeRange           string    `json:"age_range,omitempty"`
	Situation          string    `json:"situation,omitempty"`
	TopValues          []string  `json:"top_values"`
	MainChallenge      string    `json:"main_challenge,omitempty"`
	Motivations        []string  `json:"motivations"`
	SelfKnowledgeGoals []string  `json:"self_knowledge_goals"`
	UpdatedAt          time.Time `json:"updated_at"`
}
