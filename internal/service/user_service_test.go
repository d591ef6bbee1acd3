package service

import (
	"context"
	"testing"

	"companion-be/internal/dto"
	"companion-be/internal/entity"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestGetProfileDefaults(t *testing.T) {
	users := newFakeUsers()
	u := users.addUser("Ana Souza", "ana@example.com")
	svc := NewUserService(users, logger.NewNopLogger())

	res, err := svc.GetProfile(context.Background(), u.Id)
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", res.FullName)
	assert.Equal(t, "detailed", res.Preferences.ResponseStyle)
	assert.Equal(t, DefaultTimezone, res.Preferences.Timezone)
	assert.False(t, res.Preferences.ReminderEnabled)
	assert.Nil(t, res.Questionnaire)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUpdatePreferencesMergesFields(t *testing.T) {
	users := newFakeUsers()
	u := users.addUser("Ana", "ana@example.com")
	svc := NewUserService(users, logger.NewNopLogger())
	ctx := context.Background()

	res, err := svc.UpdatePreferences(ctx, u.Id, &dto.UpdatePreferencesRequest{ResponseStyle: "spiritual"})
	require.NoError(t, err)
	assert.Equal(t, "spiritual", res.ResponseStyle)

	res, err = svc.UpdatePreferences(ctx, u.Id, &dto.UpdatePreferencesRequest{
		ReminderEnabled: boolPtr(true),
		ReminderTime:    "08:30",
		Timezone:        "America/Sao_Paulo",
	})
	require.NoError(t, err)
	assert.Equal(t, "spiritual", res.ResponseStyle, "omitted fields keep their value")
	assert.True(t, res.ReminderEnabled)
	assert.Equal(t, "08:30", res.ReminderTime)

	stored := users.pref(u.Id)
	require.NotNil(t, stored)
	assert.Equal(t, entity.ResponseStyleSpiritual, stored.ResponseStyle)
	assert.Equal(t, "America/Sao_Paulo", stored.Timezone)
	assert.Equal(t, 2, users.commits)
}

func TestUpdatePreferencesRequiresReminderTime(t *testing.T) {
	users := newFakeUsers()
	u := users.addUser("Ana", "ana@example.com")
	svc := NewUserService(users, logger.NewNopLogger())

	_, err := svc.UpdatePreferences(context.Background(), u.Id, &dto.UpdatePreferencesRequest{ReminderEnabled: boolPtr(true)})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Nil(t, users.pref(u.Id))
}

func TestUpdateQuestionnaireFeedsProfile(t *testing.T) {
	users := newFakeUsers()
	u := users.addUser("Ana", "ana@example.com")
	svc := NewUserService(users, logger.NewNopLogger())
	ctx := context.Background()

	saved, err := svc.UpdateQuestionnaire(ctx, u.Id, &dto.UpdateQuestionnaireRequest{
		AgeRange:  "25-34",
		TopValues: []string{"família", "fé"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"família", "fé"}, saved.TopValues)
	assert.Equal(t, []string{}, saved.Motivations)

	profile, err := svc.GetProfile(ctx, u.Id)
	require.NoError(t, err)
	require.NotNil(t, profile.Questionnaire)
	assert.Equal(t, "25-34", profile.Questionnaire.AgeRange)
}
