package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateChatSessionRequest struct {
	Mode          string   `json:"mode" validate:"required,oneof=COUNCIL DECISION"`
	CharacterKeys []string `json:"characterKeys" validate:"required,min=1,max=6,unique,dive,required"`
	Title         string   `json:"title" validate:"max=120"`
}

type RenameChatSessionRequest struct {
	Title string `json:"title" validate:"required,max=120"`
}

type GetChatSessionRequest struct {
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit" validate:"gte=0"`
}

type SendChatMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
	Stream  bool   `json:"stream"`
}

type ChatParticipantResponse struct {
	CharacterKey  string  `json:"characterKey"`
	CharacterName string  `json:"characterName"`
	AvatarURL     *string `json:"avatarUrl"`
	OrderIndex    int     `json:"orderIndex"`
}

type ChatSessionResponse struct {
	Id           uuid.UUID                 `json:"id"`
	Mode         string                    `json:"mode"`
	Title        string                    `json:"title"`
	IsClosed     bool                      `json:"isClosed"`
	CreatedAt    time.Time                 `json:"createdAt"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
	Participants []ChatParticipantResponse `json:"participants,omitempty"`
}

type ChatMessageResponse struct {
	Id         uuid.UUID              `json:"id"`
	Role       string                 `json:"role"`
	AuthorKey  *string                `json:"authorKey"`
	AuthorName *string                `json:"authorName"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

type ChatSessionDetailResponse struct {
	Session    ChatSessionResponse   `json:"session"`
	Messages   []ChatMessageResponse `json:"messages"`
	NextCursor *string               `json:"nextCursor"`
}

type FinalDecisionResponse struct {
	MessageId uuid.UUID `json:"messageId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Rationale string    `json:"rationale"`
}

type SendChatMessageResponse struct {
	SessionId       uuid.UUID              `json:"sessionId"`
	Mode            string                 `json:"mode"`
	UserMessage     ChatMessageResponse    `json:"userMessage"`
	Messages        []ChatMessageResponse  `json:"messages"`
	FinalDecision   *FinalDecisionResponse `json:"finalDecision,omitempty"`
	SuggestedTopics []string               `json:"suggestedTopics"`
}

type ChatSuggestionsResponse struct {
	SessionId       uuid.UUID `json:"sessionId"`
	SuggestedTopics []string  `json:"suggestedTopics"`
	IsDefault       bool      `json:"isDefault"`
}

type CharacterResponse struct {
	Id        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatarUrl"`
	StyleTags []string  `json:"styleTags"`
}
