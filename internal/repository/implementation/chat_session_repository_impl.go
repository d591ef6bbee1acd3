package implementation

import (
	"context"
	"errors"
	"time"

	"companion-be/internal/entity"
	"companion-be/internal/mapper"
	"companion-be/internal/model"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatSessionRepositoryImpl) Create(ctx context.Context, session *entity.ChatSession) error {
	m := r.mapper.ChatSessionToModel(session)
	if err := r.db.WithContext(ctx).Omit("Participants").Create(m).Error; err != nil {
		return err
	}
	participants := session.Participants
	*session = *r.mapper.ChatSessionToEntity(m)
	session.Participants = participants
	return nil
}

func (r *ChatSessionRepositoryImpl) Update(ctx context.Context, session *entity.ChatSession) error {
	m := r.mapper.ChatSessionToModel(session)
	err := r.db.WithContext(ctx).Model(&model.ChatSession{}).Where("id = ?", m.Id).Updates(map[string]interface{}{
		"title":      m.Title,
		"is_closed":  m.IsClosed,
		"updated_at": time.Now(),
	}).Error
	return err
}

func (r *ChatSessionRepositoryImpl) Touch(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.ChatSession{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
}

func (r *ChatSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ChatSession{}, "id = ?", id).Error
}

func (r *ChatSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	var m model.ChatSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatSessionToEntity(&m), nil
}

func (r *ChatSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var models []*model.ChatSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatSessionToEntity(m)
	}
	return entities, nil
}

type ChatParticipantRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatParticipantRepository(db *gorm.DB) contract.ChatParticipantRepository {
	return &ChatParticipantRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatParticipantRepositoryImpl) CreateBatch(ctx context.Context, participants []*entity.ChatParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	models := make([]*model.ChatParticipant, len(participants))
	for i, p := range participants {
		models[i] = r.mapper.ChatParticipantToModel(p)
	}
	if err := r.db.WithContext(ctx).Omit("Character").Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		participants[i].Id = m.Id
	}
	return nil
}

func (r *ChatParticipantRepositoryImpl) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).Delete(&model.ChatParticipant{}).Error
}

func (r *ChatParticipantRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatParticipant, error) {
	var models []*model.ChatParticipant
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatParticipant, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatParticipantToEntity(m)
	}
	return entities, nil
}
