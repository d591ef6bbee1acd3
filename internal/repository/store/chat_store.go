package store

import (
	"context"
	"fmt"
	"time"

	"companion-be/internal/entity"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/specification"
	"companion-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type GormChatStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewGormChatStore(uowFactory unitofwork.RepositoryFactory) *GormChatStore {
	return &GormChatStore{uowFactory: uowFactory}
}

func (s *GormChatStore) CreateSession(ctx context.Context, session *entity.ChatSession, participants []*entity.ChatParticipant) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	for _, p := range participants {
		p.ChatSessionId = session.Id
	}
	if err := uow.ChatParticipantRepository().CreateBatch(ctx, participants); err != nil {
		return fmt.Errorf("create participants: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return err
	}
	session.Participants = participants
	return nil
}

func (s *GormChatStore) FindSession(ctx context.Context, sessionId uuid.UUID) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
}

func (s *GormChatStore) ListSessions(ctx context.Context, userId uuid.UUID) ([]*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
}

func (s *GormChatStore) UpdateSession(ctx context.Context, session *entity.ChatSession) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatSessionRepository().Update(ctx, session)
}

// DeleteSession removes children explicitly so it does not depend on FK cascade being present.
func (s *GormChatStore) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, sessionId); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := uow.ChatParticipantRepository().DeleteBySessionId(ctx, sessionId); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return uow.Commit()
}

func (s *GormChatStore) FindParticipants(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatParticipant, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatParticipantRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.WithCharacter{},
		specification.OrderBy{Field: "order_index"},
	)
}

func (s *GormChatStore) AppendMessages(ctx context.Context, sessionId uuid.UUID, messages []*entity.ChatMessage) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().CreateBatch(ctx, messages); err != nil {
		return fmt.Errorf("insert messages: %w", err)
	}
	if err := uow.ChatSessionRepository().Touch(ctx, sessionId); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return uow.Commit()
}

func (s *GormChatStore) ListMessages(ctx context.Context, query contract.MessageQuery) ([]*entity.ChatMessage, error) {
	specs := []specification.Specification{
		specification.ByChatSessionID{ChatSessionID: query.SessionId},
	}
	if len(query.ExcludeRoles) > 0 {
		roles := make([]string, len(query.ExcludeRoles))
		for i, r := range query.ExcludeRoles {
			roles[i] = string(r)
		}
		specs = append(specs, specification.ExcludeMessageRoles{Roles: roles})
	}
	if query.Before != nil {
		specs = append(specs, specification.MessagesBefore{CreatedAt: query.Before.CreatedAt, Id: query.Before.Id})
	}
	specs = append(specs, specification.NewestFirst{})
	if query.Limit > 0 {
		specs = append(specs, specification.Limit{Limit: query.Limit})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.ChatMessageRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func (s *GormChatStore) LatestMessage(ctx context.Context, sessionId uuid.UUID, role entity.MessageRole) (*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatMessageRepository().FindOne(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.ByMessageRole{Role: string(role)},
		specification.NewestFirst{},
	)
}

func (s *GormChatStore) NewestMessageTime(ctx context.Context, sessionId uuid.UUID) (time.Time, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	msg, err := uow.ChatMessageRepository().FindOne(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.NewestFirst{},
	)
	if err != nil || msg == nil {
		return time.Time{}, err
	}
	return msg.CreatedAt, nil
}

func (s *GormChatStore) FindCharactersByKeys(ctx context.Context, keys []string) ([]*entity.Character, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.CharacterRepository().FindAll(ctx,
		specification.ByCharacterKeys{Keys: keys},
		specification.ActiveCharacters{},
	)
}

func (s *GormChatStore) ListActiveCharacters(ctx context.Context) ([]*entity.Character, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.CharacterRepository().FindAll(ctx,
		specification.ActiveCharacters{},
		specification.OrderBy{Field: "name"},
	)
}

func (s *GormChatStore) FindUserContext(ctx context.Context, userId uuid.UUID) (*entity.UserContext, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.UserRepository()

	userCtx := &entity.UserContext{UserId: userId, ResponseStyle: entity.ResponseStyleDetailed}

	user, err := repo.FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user != nil {
		userCtx.Name = user.FullName
	}

	pref, err := repo.FindPreference(ctx, userId)
	if err != nil {
		return nil, err
	}
	if pref != nil && pref.ResponseStyle.IsValid() {
		userCtx.ResponseStyle = pref.ResponseStyle
	}

	questionnaire, err := repo.FindQuestionnaire(ctx, userId)
	if err != nil {
		return nil, err
	}
	userCtx.Profile = questionnaire

	return userCtx, nil
}

func reverse(messages []*entity.ChatMessage) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
