package implementation

import (
	"context"
	"errors"

	"companion-be/internal/entity"
	"companion-be/internal/mapper"
	"companion-be/internal/model"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUserRepository(db *gorm.DB) contract.UserRepository {
	return &UserRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	var m model.User
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *UserRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	var models []*model.User
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.User, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *UserRepositoryImpl) FindQuestionnaire(ctx context.Context, userId uuid.UUID) (*entity.UserQuestionnaire, error) {
	var m model.UserQuestionnaire
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.QuestionnaireToEntity(&m), nil
}

func (r *UserRepositoryImpl) SaveQuestionnaire(ctx context.Context, questionnaire *entity.UserQuestionnaire) error {
	m := r.mapper.QuestionnaireToModel(questionnaire)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"age_range", "situation", "top_values", "main_challenge", "motivations", "self_knowledge_goals", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*questionnaire = *r.mapper.QuestionnaireToEntity(m)
	return nil
}

func (r *UserRepositoryImpl) FindPreference(ctx context.Context, userId uuid.UUID) (*entity.UserPreference, error) {
	var m model.UserPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PreferenceToEntity(&m), nil
}

func (r *UserRepositoryImpl) FindPreferences(ctx context.Context, specs ...specification.Specification) ([]*entity.UserPreference, error) {
	var models []*model.UserPreference
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.UserPreference, len(models))
	for i, m := range models {
		entities[i] = r.mapper.PreferenceToEntity(m)
	}
	return entities, nil
}

func (r *UserRepositoryImpl) SavePreference(ctx context.Context, preference *entity.UserPreference) error {
	m := r.mapper.PreferenceToModel(preference)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"response_style", "reminder_enabled", "reminder_time", "timezone", "email_enabled", "last_reminder_at", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*preference = *r.mapper.PreferenceToEntity(m)
	return nil
}
