package mapper

import (
	"companion-be/internal/entity"
	"companion-be/internal/model"

	"gorm.io/datatypes"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:        u.Id,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      entity.UserRole(u.Role),
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (m *UserMapper) QuestionnaireToEntity(q *model.UserQuestionnaire) *entity.UserQuestionnaire {
	if q == nil {
		return nil
	}
	return &entity.UserQuestionnaire{
		Id:                 q.Id,
		UserId:             q.UserId,
		AgeRange:           q.AgeRange,
		Situation:          q.Situation,
		TopValues:          []string(q.TopValues),
		MainChallenge:      q.MainChallenge,
		Motivations:        []string(q.Motivations),
		SelfKnowledgeGoals: []string(q.SelfKnowledgeGoals),
		UpdatedAt:          q.UpdatedAt,
	}
}

func (m *UserMapper) QuestionnaireToModel(q *entity.UserQuestionnaire) *model.UserQuestionnaire {
	if q == nil {
		return nil
	}
	return &model.UserQuestionnaire{
		Id:                 q.Id,
		UserId:             q.UserId,
		AgeRange:           q.AgeRange,
		Situation:          q.Situation,
		TopValues:          datatypes.JSONSlice[string](q.TopValues),
		MainChallenge:      q.MainChallenge,
		Motivations:        datatypes.JSONSlice[string](q.Motivations),
		SelfKnowledgeGoals: datatypes.JSONSlice[string](q.SelfKnowledgeGoals),
	}
}

func (m *UserMapper) PreferenceToEntity(p *model.UserPreference) *entity.UserPreference {
	if p == nil {
		return nil
	}
	return &entity.UserPreference{
		Id:              p.Id,
		UserId:          p.UserId,
		ResponseStyle:   entity.ResponseStyle(p.ResponseStyle),
		ReminderEnabled: p.ReminderEnabled,
		ReminderTime:    p.ReminderTime,
		Timezone:        p.Timezone,
		EmailEnabled:    p.EmailEnabled,
		LastReminderAt:  p.LastReminderAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (m *UserMapper) PreferenceToModel(p *entity.UserPreference) *model.UserPreference {
	if p == nil {
		return nil
	}
	return &model.UserPreference{
		Id:              p.Id,
		UserId:          p.UserId,
		ResponseStyle:   string(p.ResponseStyle),
		ReminderEnabled: p.ReminderEnabled,
		ReminderTime:    p.ReminderTime,
		Timezone:        p.Timezone,
		EmailEnabled:    p.EmailEnabled,
		LastReminderAt:  p.LastReminderAt,
	}
}
