package orchestrator

import (
	"time"

	"companion-be/internal/entity"

	"github.com/google/uuid"
)

type ParticipantInfo struct {
	CharacterKey  string `json:"characterKey"`
	CharacterName string `json:"characterName"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	OrderIndex    int    `json:"orderIndex"`
}

// CharacterReply is one persisted CHARACTER message.
type CharacterReply struct {
	MessageId     uuid.UUID `json:"messageId"`
	CharacterKey  string    `json:"characterKey"`
	CharacterName string    `json:"characterName"`
	OrderIndex    int       `json:"orderIndex"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Decision struct {
	MessageId uuid.UUID `json:"messageId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Rationale string    `json:"rationale"`
	CreatedAt time.Time `json:"createdAt"`
}

type StartData struct {
	SessionId    uuid.UUID         `json:"sessionId"`
	Mode         entity.ChatMode   `json:"mode"`
	Participants []ParticipantInfo `json:"participants"`
}

type CompleteData struct {
	SessionId       uuid.UUID   `json:"sessionId"`
	SuggestedTopics []string    `json:"suggestedTopics"`
	MessageIds      []uuid.UUID `json:"messageIds"`
}

type Result struct {
	Mode            entity.ChatMode
	Participants    []ParticipantInfo
	Responses       []CharacterReply // Council
	Analyses        []CharacterReply // Decision
	Decision        *Decision
	SuggestedTopics []string
	MessageIds      []uuid.UUID
}

func participantInfos(participants []*entity.ChatParticipant) []ParticipantInfo {
	out := make([]ParticipantInfo, len(participants))
	for i, p := range participants {
		out[i] = ParticipantInfo{
			CharacterKey:  p.Character.Key,
			CharacterName: p.Character.Name,
			AvatarURL:     p.Character.AvatarURL,
			OrderIndex:    p.OrderIndex,
		}
	}
	return out
}

func replyFrom(msg *entity.ChatMessage, participant *entity.ChatParticipant) CharacterReply {
	return CharacterReply{
		MessageId:     msg.Id,
		CharacterKey:  participant.Character.Key,
		CharacterName: participant.Character.Name,
		OrderIndex:    participant.OrderIndex,
		Content:       msg.Content,
		CreatedAt:     msg.CreatedAt,
	}
}
