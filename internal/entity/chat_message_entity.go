package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleCharacter MessageRole = "CHARACTER"
	MessageRoleSummary   MessageRole = "SUMMARY"
	MessageRoleSystem    MessageRole = "SYSTEM"
	MessageRoleNarrator  MessageRole = "NARRATOR" // reserved, never produced
)

// Round of a character message inside a turn.
const (
	CharacterRoundResponse = "response"
	CharacterRoundAnalysis = "analysis"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          MessageRole
	AuthorKey     *string
	AuthorName    *string
	Content       string
	Payload       MessagePayload
	CreatedAt     time.Time
}

// MessagePayload is the role-specific metadata of a message.
// Implemented by UserPayload, CharacterPayload, SummaryPayload, SystemPayload and NarratorPayload.
type MessagePayload interface {
	Role() MessageRole
}

type ModerationResult struct {
	Checked    bool     `json:"checked"`
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories,omitempty"`
}

type UserPayload struct {
	Moderation ModerationResult
}

type CharacterPayload struct {
	Mode           ChatMode
	Round          string
	CharacterOrder int
}

type SummaryPayload struct {
	Title     string
	Rationale string
}

type SystemPayload struct {
	Mode            ChatMode
	SuggestedTopics []string
}

type NarratorPayload struct{}

func (UserPayload) Role() MessageRole      { return MessageRoleUser }
func (CharacterPayload) Role() MessageRole { return MessageRoleCharacter }
func (SummaryPayload) Role() MessageRole   { return MessageRoleSummary }
func (SystemPayload) Role() MessageRole    { return MessageRoleSystem }
func (NarratorPayload) Role() MessageRole  { return MessageRoleNarrator }

// MessageTime truncates to milliseconds, the precision of pagination cursors.
func MessageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NextMessageTime stamps a new row strictly after the newest stored one, so
// (created_at, id) order stays equal to persistence order even when clocks drift.
func NextMessageTime(now, newest time.Time) time.Time {
	t := MessageTime(now)
	if !t.After(newest) {
		t = newest.Add(time.Millisecond)
	}
	return t
}

func NewMessageId() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func NewUserMessage(sessionId uuid.UUID, content string, moderation ModerationResult, at time.Time) *ChatMessage {
	return &ChatMessage{
		Id:            NewMessageId(),
		ChatSessionId: sessionId,
		Role:          MessageRoleUser,
		Content:       content,
		Payload:       UserPayload{Moderation: moderation},
		CreatedAt:     MessageTime(at),
	}
}

func NewCharacterMessage(sessionId uuid.UUID, participant *ChatParticipant, content string, payload CharacterPayload, at time.Time) *ChatMessage {
	key := participant.Character.Key
	name := participant.Character.Name
	return &ChatMessage{
		Id:            NewMessageId(),
		ChatSessionId: sessionId,
		Role:          MessageRoleCharacter,
		AuthorKey:     &key,
		AuthorName:    &name,
		Content:       content,
		Payload:       payload,
		CreatedAt:     MessageTime(at),
	}
}

const SummaryAuthorKey = "summary"

func NewSummaryMessage(sessionId uuid.UUID, content string, payload SummaryPayload, at time.Time) *ChatMessage {
	key := SummaryAuthorKey
	return &ChatMessage{
		Id:            NewMessageId(),
		ChatSessionId: sessionId,
		Role:          MessageRoleSummary,
		AuthorKey:     &key,
		Content:       content,
		Payload:       payload,
		CreatedAt:     MessageTime(at),
	}
}

func NewSystemMessage(sessionId uuid.UUID, payload SystemPayload, at time.Time) *ChatMessage {
	return &ChatMessage{
		Id:            NewMessageId(),
		ChatSessionId: sessionId,
		Role:          MessageRoleSystem,
		Content:       "suggested_topics",
		Payload:       payload,
		CreatedAt:     MessageTime(at),
	}
}
