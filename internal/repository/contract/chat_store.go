package contract

import (
	"context"
	"time"

	"companion-be/internal/entity"
	"companion-be/pkg/council/cursor"

	"github.com/google/uuid"
)

// MessageQuery selects the newest Limit messages of a session strictly older than Before.
type MessageQuery struct {
	SessionId    uuid.UUID
	Before       *cursor.Position
	Limit        int
	ExcludeRoles []entity.MessageRole
}

// ChatStore is the persistence contract of the chat subsystem.
// Missing rows are reported as (nil, nil). Message slices are returned in chronological order.
type ChatStore interface {
	CreateSession(ctx context.Context, session *entity.ChatSession, participants []*entity.ChatParticipant) error
	FindSession(ctx context.Context, sessionId uuid.UUID) (*entity.ChatSession, error)
	ListSessions(ctx context.Context, userId uuid.UUID) ([]*entity.ChatSession, error)
	UpdateSession(ctx context.Context, session *entity.ChatSession) error
	DeleteSession(ctx context.Context, sessionId uuid.UUID) error

	// FindParticipants returns participants ordered by OrderIndex with Character loaded.
	FindParticipants(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatParticipant, error)

	// AppendMessages writes all messages and touches the session in one transaction.
	AppendMessages(ctx context.Context, sessionId uuid.UUID, messages []*entity.ChatMessage) error
	ListMessages(ctx context.Context, query MessageQuery) ([]*entity.ChatMessage, error)
	LatestMessage(ctx context.Context, sessionId uuid.UUID, role entity.MessageRole) (*entity.ChatMessage, error)
	// NewestMessageTime covers every role; zero when the session has no messages.
	NewestMessageTime(ctx context.Context, sessionId uuid.UUID) (time.Time, error)

	FindCharactersByKeys(ctx context.Context, keys []string) ([]*entity.Character, error)
	ListActiveCharacters(ctx context.Context) ([]*entity.Character, error)

	// FindUserContext never returns nil for a nil error; unknown users get defaults.
	FindUserContext(ctx context.Context, userId uuid.UUID) (*entity.UserContext, error)
}
