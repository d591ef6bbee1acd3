package mapper

import (
	"encoding/json"

	"companion-be/internal/entity"
	"companion-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	session := &entity.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Mode:      entity.ChatMode(s.Mode),
		Title:     s.Title,
		IsClosed:  s.IsClosed,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for i := range s.Participants {
		session.Participants = append(session.Participants, m.ChatParticipantToEntity(&s.Participants[i]))
	}
	return session
}

// ChatSessionToModel leaves Participants empty; they are written explicitly.
func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	return &model.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Mode:      string(s.Mode),
		Title:     s.Title,
		IsClosed:  s.IsClosed,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Participant Mappers

func (m *ChatMapper) ChatParticipantToEntity(p *model.ChatParticipant) *entity.ChatParticipant {
	if p == nil {
		return nil
	}

	return &entity.ChatParticipant{
		Id:            p.Id,
		ChatSessionId: p.ChatSessionId,
		CharacterId:   p.CharacterId,
		OrderIndex:    p.OrderIndex,
		Character:     m.CharacterToEntity(p.Character),
	}
}

func (m *ChatMapper) ChatParticipantToModel(p *entity.ChatParticipant) *model.ChatParticipant {
	if p == nil {
		return nil
	}

	return &model.ChatParticipant{
		Id:            p.Id,
		ChatSessionId: p.ChatSessionId,
		CharacterId:   p.CharacterId,
		OrderIndex:    p.OrderIndex,
	}
}

// Character Mappers

func (m *ChatMapper) CharacterToEntity(c *model.Character) *entity.Character {
	if c == nil {
		return nil
	}

	return &entity.Character{
		Id:         c.Id,
		Key:        c.Key,
		Name:       c.Name,
		AvatarURL:  c.AvatarURL,
		BasePrompt: c.BasePrompt,
		StyleTags:  []string(c.StyleTags),
		IsActive:   c.IsActive,
	}
}

func (m *ChatMapper) CharacterToModel(c *entity.Character) *model.Character {
	if c == nil {
		return nil
	}

	return &model.Character{
		Id:         c.Id,
		Key:        c.Key,
		Name:       c.Name,
		AvatarURL:  c.AvatarURL,
		BasePrompt: c.BasePrompt,
		StyleTags:  datatypes.JSONSlice[string](c.StyleTags),
		IsActive:   c.IsActive,
	}
}

// Message Mappers

const (
	payloadTypeUser      = "user"
	payloadTypeCharacter = "character"
	payloadTypeSummary   = "summary"
	payloadTypeSystem    = "system"
	payloadTypeNarrator  = "narrator"
)

type messageMetadata struct {
	Type            string                   `json:"type"`
	Moderation      *entity.ModerationResult `json:"moderation,omitempty"`
	Mode            string                   `json:"mode,omitempty"`
	Round           string                   `json:"round,omitempty"`
	CharacterOrder  *int                     `json:"characterOrder,omitempty"`
	Title           string                   `json:"title,omitempty"`
	Rationale       string                   `json:"rationale,omitempty"`
	SuggestedTopics []string                 `json:"suggestedTopics,omitempty"`
}

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          entity.MessageRole(msg.Role),
		AuthorKey:     msg.AuthorKey,
		AuthorName:    msg.AuthorName,
		Content:       msg.Content,
		Payload:       decodePayload(entity.MessageRole(msg.Role), msg.Metadata),
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          string(msg.Role),
		AuthorKey:     msg.AuthorKey,
		AuthorName:    msg.AuthorName,
		Content:       msg.Content,
		Metadata:      encodePayload(msg.Payload),
		CreatedAt:     msg.CreatedAt,
	}
}

func encodePayload(payload entity.MessagePayload) datatypes.JSON {
	var meta messageMetadata
	switch p := payload.(type) {
	case entity.UserPayload:
		moderation := p.Moderation
		meta = messageMetadata{Type: payloadTypeUser, Moderation: &moderation}
	case entity.CharacterPayload:
		order := p.CharacterOrder
		meta = messageMetadata{Type: payloadTypeCharacter, Mode: string(p.Mode), Round: p.Round, CharacterOrder: &order}
	case entity.SummaryPayload:
		meta = messageMetadata{Type: payloadTypeSummary, Title: p.Title, Rationale: p.Rationale}
	case entity.SystemPayload:
		meta = messageMetadata{Type: payloadTypeSystem, Mode: string(p.Mode), SuggestedTopics: p.SuggestedTopics}
	case entity.NarratorPayload:
		meta = messageMetadata{Type: payloadTypeNarrator}
	default:
		return nil
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// decodePayload falls back to the empty payload of the row's role when metadata is missing or unreadable.
func decodePayload(role entity.MessageRole, raw datatypes.JSON) entity.MessagePayload {
	var meta messageMetadata
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &meta)
	}

	switch role {
	case entity.MessageRoleUser:
		p := entity.UserPayload{}
		if meta.Moderation != nil {
			p.Moderation = *meta.Moderation
		}
		return p
	case entity.MessageRoleCharacter:
		p := entity.CharacterPayload{Mode: entity.ChatMode(meta.Mode), Round: meta.Round}
		if meta.CharacterOrder != nil {
			p.CharacterOrder = *meta.CharacterOrder
		}
		return p
	case entity.MessageRoleSummary:
		return entity.SummaryPayload{Title: meta.Title, Rationale: meta.Rationale}
	case entity.MessageRoleSystem:
		return entity.SystemPayload{Mode: entity.ChatMode(meta.Mode), SuggestedTopics: meta.SuggestedTopics}
	default:
		return entity.NarratorPayload{}
	}
}
