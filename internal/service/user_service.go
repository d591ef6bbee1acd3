package service

import (
	"context"
	"time"

	"companion-be/internal/dto"
	"companion-be/internal/entity"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/repository/specification"
	"companion-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const DefaultTimezone = "UTC"

type IUserService interface {
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error)
	UpdatePreferences(ctx context.Context, userId uuid.UUID, req *dto.UpdatePreferencesRequest) (*dto.UserPreferenceResponse, error)
	UpdateQuestionnaire(ctx context.Context, userId uuid.UUID, req *dto.UpdateQuestionnaireRequest) (*dto.UserQuestionnaireResponse, error)
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IUserService {
	return &userService{
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).UserRepository()

	user, err := repo.FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}

	pref, err := repo.FindPreference(ctx, userId)
	if err != nil {
		return nil, apperror.Internal("failed to load preferences", err)
	}
	questionnaire, err := repo.FindQuestionnaire(ctx, userId)
	if err != nil {
		return nil, apperror.Internal("failed to load questionnaire", err)
	}

	res := &dto.UserProfileResponse{
		Id:          user.Id,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        string(user.Role),
		CreatedAt:   user.CreatedAt,
		Preferences: toPreferenceResponse(withDefaults(pref, userId)),
	}
	if user.AvatarURL != nil {
		res.AvatarURL = *user.AvatarURL
	}
	if questionnaire != nil {
		res.Questionnaire = toQuestionnaireResponse(questionnaire)
	}
	return res, nil
}

func (s *userService) UpdatePreferences(ctx context.Context, userId uuid.UUID, req *dto.UpdatePreferencesRequest) (*dto.UserPreferenceResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	repo := uow.UserRepository()
	current, err := repo.FindPreference(ctx, userId)
	if err != nil {
		return nil, apperror.Internal("failed to load preferences", err)
	}
	pref := withDefaults(current, userId)

	if req.ResponseStyle != "" {
		pref.ResponseStyle = entity.ResponseStyle(req.ResponseStyle)
	}
	if req.ReminderTime != "" {
		pref.ReminderTime = req.ReminderTime
	}
	if req.Timezone != "" {
		pref.Timezone = req.Timezone
	}
	if req.ReminderEnabled != nil {
		pref.ReminderEnabled = *req.ReminderEnabled
	}
	if req.EmailEnabled != nil {
		pref.EmailEnabled = *req.EmailEnabled
	}
	if pref.ReminderEnabled && pref.ReminderTime == "" {
		return nil, apperror.Validation("reminder_time is required when reminders are enabled")
	}
	pref.UpdatedAt = time.Now()

	if err := repo.SavePreference(ctx, pref); err != nil {
		return nil, apperror.Internal("failed to save preferences", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit preferences", err)
	}

	s.logger.Info("UserService", "Preferences updated", map[string]interface{}{
		"user_id":          userId.String(),
		"response_style":   pref.ResponseStyle,
		"reminder_enabled": pref.ReminderEnabled,
	})
	res := toPreferenceResponse(pref)
	return &res, nil
}

func (s *userService) UpdateQuestionnaire(ctx context.Context, userId uuid.UUID, req *dto.UpdateQuestionnaireRequest) (*dto.UserQuestionnaireResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	repo := uow.UserRepository()
	q, err := repo.FindQuestionnaire(ctx, userId)
	if err != nil {
		return nil, apperror.Internal("failed to load questionnaire", err)
	}
	if q == nil {
		q = &entity.UserQuestionnaire{UserId: userId}
	}

	q.AgeRange = req.AgeRange
	q.Situation = req.Situation
	q.TopValues = req.TopValues
	q.MainChallenge = req.MainChallenge
	q.Motivations = req.Motivations
	q.SelfKnowledgeGoals = req.SelfKnowledgeGoals
	q.UpdatedAt = time.Now()

	if err := repo.SaveQuestionnaire(ctx, q); err != nil {
		return nil, apperror.Internal("failed to save questionnaire", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit questionnaire", err)
	}

	s.logger.Info("UserService", "Questionnaire updated", map[string]interface{}{"user_id": userId.String()})
	return toQuestionnaireResponse(q), nil
}

func withDefaults(pref *entity.UserPreference, userId uuid.UUID) *entity.UserPreference {
	if pref == nil {
		pref = &entity.UserPreference{UserId: userId}
	}
	if !pref.ResponseStyle.IsValid() {
		pref.ResponseStyle = entity.ResponseStyleDetailed
	}
	if pref.Timezone == "" {
		pref.Timezone = DefaultTimezone
	}
	return pref
}

func toPreferenceResponse(p *entity.UserPreference) dto.UserPreferenceResponse {
	return dto.UserPreferenceResponse{
		ResponseStyle:   string(p.ResponseStyle),
		ReminderEnabled: p.ReminderEnabled,
		ReminderTime:    p.ReminderTime,
		Timezone:        p.Timezone,
		EmailEnabled:    p.EmailEnabled,
		LastReminderAt:  p.LastReminderAt,
	}
}

func toQuestionnaireResponse(q *entity.UserQuestionnaire) *dto.UserQuestionnaireResponse {
	return &dto.UserQuestionnaireResponse{
		AgeRange:           q.AgeRange,
		Situation:          q.Situation,
		TopValues:          nonNil(q.TopValues),
		MainChallenge:      q.MainChallenge,
		Motivations:        nonNil(q.Motivations),
		SelfKnowledgeGoals: nonNil(q.SelfKnowledgeGoals),
		UpdatedAt:          q.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
