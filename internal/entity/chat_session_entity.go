package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMode string

const (
	ChatModeCouncil  ChatMode = "COUNCIL"
	ChatModeDecision ChatMode = "DECISION"
)

func (m ChatMode) IsValid() bool {
	return m == ChatModeCouncil || m == ChatModeDecision
}

type ChatSession struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Mode      ChatMode
	Title     string
	IsClosed  bool
	CreatedAt time.Time
	UpdatedAt time.Time

	Participants []*ChatParticipant
}

// ChatParticipant binds a character to a session. OrderIndex is fixed at creation.
type ChatParticipant struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	CharacterId   uuid.UUID
	OrderIndex    int
	Character     *Character
}
