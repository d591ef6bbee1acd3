package contract

import (
	"context"

	"companion-be/internal/entity"
	"companion-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error)

	FindQuestionnaire(ctx context.Context, userId uuid.UUID) (*entity.UserQuestionnaire, error)
	SaveQuestionnaire(ctx context.Context, questionnaire *entity.UserQuestionnaire) error

	FindPreference(ctx context.Context, userId uuid.UUID) (*entity.UserPreference, error)
	FindPreferences(ctx context.Context, specs ...specification.Specification) ([]*entity.UserPreference, error)
	SavePreference(ctx context.Context, preference *entity.UserPreference) error
}
