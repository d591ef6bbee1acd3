package unitofwork

import (
	"context"

	"companion-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	CharacterRepository() contract.CharacterRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatParticipantRepository() contract.ChatParticipantRepository
	ChatMessageRepository() contract.ChatMessageRepository
}
