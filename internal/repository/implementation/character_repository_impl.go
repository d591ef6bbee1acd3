package implementation

import (
	"context"
	"errors"

	"companion-be/internal/entity"
	"companion-be/internal/mapper"
	"companion-be/internal/model"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CharacterRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewCharacterRepository(db *gorm.DB) contract.CharacterRepository {
	return &CharacterRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *CharacterRepositoryImpl) Upsert(ctx context.Context, character *entity.Character) error {
	m := r.mapper.CharacterToModel(character)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "avatar_url", "base_prompt", "style_tags", "is_active", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*character = *r.mapper.CharacterToEntity(m)
	return nil
}

func (r *CharacterRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Character, error) {
	var m model.Character
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.CharacterToEntity(&m), nil
}

func (r *CharacterRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Character, error) {
	var models []*model.Character
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Character, len(models))
	for i, m := range models {
		entities[i] = r.mapper.CharacterToEntity(m)
	}
	return entities, nil
}
