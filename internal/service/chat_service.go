package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"companion-be/internal/dto"
	"companion-be/internal/entity"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/repository/contract"
	"companion-be/pkg/council/cursor"
	"companion-be/pkg/council/orchestrator"
	"companion-be/pkg/council/schema"
	"companion-be/pkg/council/stream"
	"companion-be/pkg/council/turnlock"
	"companion-be/pkg/events"
	"companion-be/pkg/llm"

	"github.com/google/uuid"
)

const (
	MaxMessageLength     = 2000
	MaxTitleLength       = 120
	MaxSessionCharacters = 6
)

var defaultTitles = map[entity.ChatMode]string{
	entity.ChatModeCouncil:  "Nova conversa com o conselho",
	entity.ChatModeDecision: "Nova decisão",
}

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateChatSessionRequest) (*dto.ChatSessionResponse, error)
	ListSessions(ctx context.Context, userId uuid.UUID) ([]*dto.ChatSessionResponse, error)
	GetSession(ctx context.Context, userId, sessionId uuid.UUID, request *dto.GetChatSessionRequest) (*dto.ChatSessionDetailResponse, error)
	RenameSession(ctx context.Context, userId, sessionId uuid.UUID, request *dto.RenameChatSessionRequest) (*dto.ChatSessionResponse, error)
	CloseSession(ctx context.Context, userId, sessionId uuid.UUID) (*dto.ChatSessionResponse, error)
	DeleteSession(ctx context.Context, userId, sessionId uuid.UUID) error

	// CheckSendable reports the same error SendMessage would for a missing, foreign or closed session.
	CheckSendable(ctx context.Context, userId, sessionId uuid.UUID) error
	SendMessage(ctx context.Context, userId, sessionId uuid.UUID, request *dto.SendChatMessageRequest, sink stream.Sink) (*dto.SendChatMessageResponse, error)
	GetSuggestions(ctx context.Context, userId, sessionId uuid.UUID) (*dto.ChatSuggestionsResponse, error)
}

// TurnRunner is satisfied by *orchestrator.Orchestrator.
type TurnRunner interface {
	Run(ctx context.Context, turn orchestrator.Turn, sink stream.Sink) (*orchestrator.Result, error)
}

type ChatServiceConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

type chatService struct {
	store     contract.ChatStore
	runner    TurnRunner
	moderator llm.Moderator
	locker    turnlock.Locker
	publisher events.Publisher
	cfg       ChatServiceConfig
	logger    logger.ILogger
	now       func() time.Time
}

func NewChatService(
	store contract.ChatStore,
	runner TurnRunner,
	moderator llm.Moderator,
	locker turnlock.Locker,
	publisher events.Publisher,
	cfg ChatServiceConfig,
	log logger.ILogger,
) IChatService {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 30
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if moderator == nil {
		moderator = llm.NoopModerator{}
	}
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &chatService{
		store:     store,
		runner:    runner,
		moderator: moderator,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateChatSessionRequest) (*dto.ChatSessionResponse, error) {
	mode := entity.ChatMode(request.Mode)
	if !mode.IsValid() {
		return nil, apperror.Validationf("mode must be %s or %s", entity.ChatModeCouncil, entity.ChatModeDecision)
	}

	keys, err := normalizeCharacterKeys(request.CharacterKeys)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(request.Title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, apperror.Validationf("title must be at most %d characters", MaxTitleLength)
	}
	if title == "" {
		title = defaultTitles[mode]
	}

	characters, err := cs.store.FindCharactersByKeys(ctx, keys)
	if err != nil {
		return nil, apperror.Internal("failed to load characters", err)
	}
	byKey := make(map[string]*entity.Character, len(characters))
	for _, c := range characters {
		byKey[c.Key] = c
	}

	var unknown []string
	participants := make([]*entity.ChatParticipant, 0, len(keys))
	for i, key := range keys {
		c, ok := byKey[key]
		if !ok || !c.IsActive {
			unknown = append(unknown, key)
			continue
		}
		participants = append(participants, &entity.ChatParticipant{
			CharacterId: c.Id,
			OrderIndex:  i,
			Character:   c,
		})
	}
	if len(unknown) > 0 {
		return nil, apperror.Validationf("unknown or inactive characters: %s", strings.Join(unknown, ", "))
	}

	session := &entity.ChatSession{
		Id:     uuid.New(),
		UserId: userId,
		Mode:   mode,
		Title:  title,
	}
	if err := cs.store.CreateSession(ctx, session, participants); err != nil {
		return nil, apperror.Internal("failed to create chat session", err)
	}
	session.Participants = participants

	cs.logger.Info("ChatService", "Chat session created", map[string]interface{}{
		"session_id": session.Id.String(),
		"user_id":    userId.String(),
		"mode":       mode,
		"characters": keys,
	})
	cs.publish(ctx, events.NewChatSessionCreated(userId, session.Id, string(mode), title))

	res := toSessionResponse(session)
	return &res, nil
}

func (cs *chatService) ListSessions(ctx context.Context, userId uuid.UUID) ([]*dto.ChatSessionResponse, error) {
	sessions, err := cs.store.ListSessions(ctx, userId)
	if err != nil {
		return nil, apperror.Internal("failed to list chat sessions", err)
	}

	res := make([]*dto.ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		item := toSessionResponse(s)
		res = append(res, &item)
	}
	return res, nil
}

func (cs *chatService) GetSession(ctx context.Context, userId, sessionId uuid.UUID, request *dto.GetChatSessionRequest) (*dto.ChatSessionDetailResponse, error) {
	session, err := cs.loadOwned(ctx, userId, sessionId, false)
	if err != nil {
		return nil, err
	}

	limit, err := cs.pageSize(request.Limit)
	if err != nil {
		return nil, err
	}

	var before *cursor.Position
	if request.Cursor != "" {
		pos, err := cursor.Decode(request.Cursor)
		if err != nil {
			return nil, apperror.Validation("invalid cursor")
		}
		before = &pos
	}

	participants, err := cs.store.FindParticipants(ctx, session.Id)
	if err != nil {
		return nil, apperror.Internal("failed to load participants", err)
	}
	session.Participants = participants

	messages, err := cs.store.ListMessages(ctx, contract.MessageQuery{
		SessionId:    session.Id,
		Before:       before,
		Limit:        limit,
		ExcludeRoles: []entity.MessageRole{entity.MessageRoleSystem},
	})
	if err != nil {
		return nil, apperror.Internal("failed to load messages", err)
	}

	res := &dto.ChatSessionDetailResponse{
		Session:  toSessionResponse(session),
		Messages: toMessageResponses(messages),
	}
	// A full page may have more behind it; a short page never does.
	if len(messages) == limit {
		next := cursor.Encode(cursor.Position{CreatedAt: messages[0].CreatedAt, Id: messages[0].Id})
		res.NextCursor = &next
	}
	return res, nil
}

func (cs *chatService) RenameSession(ctx context.Context, userId, sessionId uuid.UUID, request *dto.RenameChatSessionRequest) (*dto.ChatSessionResponse, error) {
	title := strings.TrimSpace(request.Title)
	if title == "" {
		return nil, apperror.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, apperror.Validationf("title must be at most %d characters", MaxTitleLength)
	}

	session, err := cs.loadOwned(ctx, userId, sessionId, false)
	if err != nil {
		return nil, err
	}

	session.Title = title
	if err := cs.store.UpdateSession(ctx, session); err != nil {
		return nil, apperror.Internal("failed to rename chat session", err)
	}
	return cs.reload(ctx, session.Id)
}

func (cs *chatService) CloseSession(ctx context.Context, userId, sessionId uuid.UUID) (*dto.ChatSessionResponse, error) {
	session, err := cs.loadOwned(ctx, userId, sessionId, false)
	if err != nil {
		return nil, err
	}

	if !session.IsClosed {
		session.IsClosed = true
		if err := cs.store.UpdateSession(ctx, session); err != nil {
			return nil, apperror.Internal("failed to close chat session", err)
		}
		cs.logger.Info("ChatService", "Chat session closed", map[string]interface{}{"session_id": session.Id.String()})
	}
	return cs.reload(ctx, session.Id)
}

func (cs *chatService) DeleteSession(ctx context.Context, userId, sessionId uuid.UUID) error {
	session, err := cs.loadOwned(ctx, userId, sessionId, false)
	if err != nil {
		return err
	}

	if err := cs.store.DeleteSession(ctx, session.Id); err != nil {
		return apperror.Internal("failed to delete chat session", err)
	}
	cs.logger.Info("ChatService", "Chat session deleted", map[string]interface{}{"session_id": session.Id.String()})
	return nil
}

func (cs *chatService) CheckSendable(ctx context.Context, userId, sessionId uuid.UUID) error {
	_, err := cs.loadOwned(ctx, userId, sessionId, true)
	return err
}

func (cs *chatService) SendMessage(ctx context.Context, userId, sessionId uuid.UUID, request *dto.SendChatMessageRequest, sink stream.Sink) (*dto.SendChatMessageResponse, error) {
	content := strings.TrimSpace(request.Content)
	if content == "" {
		return nil, apperror.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperror.Validationf("content must be at most %d characters", MaxMessageLength)
	}

	session, err := cs.loadOwned(ctx, userId, sessionId, true)
	if err != nil {
		return nil, err
	}

	release, err := cs.locker.TryAcquire(ctx, session.Id.String())
	if err != nil {
		if errors.Is(err, turnlock.ErrTurnInProgress) {
			cs.logger.Warn("ChatService", "Rejected concurrent turn", map[string]interface{}{"session_id": session.Id.String()})
			return nil, apperror.TurnInProgress("a reply is already being generated for this session")
		}
		return nil, apperror.Internal("failed to acquire turn lock", err)
	}
	defer release()

	moderation := cs.moderate(ctx, session.Id, content)

	// The previous turn may have stamped rows ahead of this clock.
	newest, err := cs.store.NewestMessageTime(ctx, session.Id)
	if err != nil {
		return nil, apperror.Internal("failed to save message", err)
	}
	userMessage := entity.NewUserMessage(session.Id, content, moderation, entity.NextMessageTime(cs.now(), newest))
	if err := cs.store.AppendMessages(ctx, session.Id, []*entity.ChatMessage{userMessage}); err != nil {
		return nil, apperror.Internal("failed to save message", err)
	}

	if moderation.Flagged {
		cs.logger.Warn("ChatService", "Message flagged by moderation", map[string]interface{}{
			"session_id": session.Id.String(),
			"message_id": userMessage.Id.String(),
			"categories": moderation.Categories,
		})
		cs.publish(ctx, events.NewChatMessageFlagged(userId, session.Id, userMessage.Id, moderation.Categories))
		return nil, apperror.Validationf("message was flagged by content moderation: %s", strings.Join(moderation.Categories, ", "))
	}

	result, err := cs.runner.Run(ctx, orchestrator.Turn{
		Session:       session,
		UserInput:     content,
		UserMessageId: userMessage.Id,
	}, sink)
	if err != nil {
		return nil, err
	}

	cs.publish(ctx, events.NewChatTurnCompleted(userId, session.Id, string(session.Mode), session.Title, len(result.MessageIds)))

	return toSendResponse(session.Id, userMessage, result), nil
}

func (cs *chatService) GetSuggestions(ctx context.Context, userId, sessionId uuid.UUID) (*dto.ChatSuggestionsResponse, error) {
	session, err := cs.loadOwned(ctx, userId, sessionId, false)
	if err != nil {
		return nil, err
	}

	latest, err := cs.store.LatestMessage(ctx, session.Id, entity.MessageRoleSystem)
	if err != nil {
		return nil, apperror.Internal("failed to load suggestions", err)
	}

	if latest != nil {
		if payload, ok := latest.Payload.(entity.SystemPayload); ok && len(payload.SuggestedTopics) > 0 {
			return &dto.ChatSuggestionsResponse{SessionId: session.Id, SuggestedTopics: payload.SuggestedTopics}, nil
		}
	}
	return &dto.ChatSuggestionsResponse{
		SessionId:       session.Id,
		SuggestedTopics: schema.DefaultTopics(session.Mode),
		IsDefault:       true,
	}, nil
}

// loadOwned hides whether a session is missing, foreign or closed; only the log tells them apart.
func (cs *chatService) loadOwned(ctx context.Context, userId, sessionId uuid.UUID, requireOpen bool) (*entity.ChatSession, error) {
	session, err := cs.store.FindSession(ctx, sessionId)
	if err != nil {
		return nil, apperror.Internal("failed to load chat session", err)
	}

	reason := ""
	switch {
	case session == nil:
		reason = "missing"
	case session.UserId != userId:
		reason = "foreign"
	case requireOpen && session.IsClosed:
		reason = "closed"
	}
	if reason == "" {
		return session, nil
	}

	cs.logger.Warn("ChatService", "Chat session unavailable", map[string]interface{}{
		"session_id": sessionId.String(),
		"user_id":    userId.String(),
		"reason":     reason,
	})
	if requireOpen {
		return nil, apperror.NotFound("chat session not found or closed")
	}
	return nil, apperror.NotFound("chat session not found")
}

func (cs *chatService) reload(ctx context.Context, sessionId uuid.UUID) (*dto.ChatSessionResponse, error) {
	session, err := cs.store.FindSession(ctx, sessionId)
	if err != nil || session == nil {
		return nil, apperror.Internal("failed to reload chat session", err)
	}
	res := toSessionResponse(session)
	return &res, nil
}

func (cs *chatService) moderate(ctx context.Context, sessionId uuid.UUID, content string) entity.ModerationResult {
	res, err := cs.moderator.ModerateContent(ctx, content)
	if err != nil || res == nil {
		// Moderation never blocks a turn it could not evaluate.
		cs.logger.Warn("ChatService", "Moderation unavailable, continuing unchecked", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      fmt.Sprint(err),
		})
		return entity.ModerationResult{}
	}
	return entity.ModerationResult{Checked: res.Checked, Flagged: res.Flagged, Categories: res.Categories}
}

func (cs *chatService) publish(ctx context.Context, event events.Event) {
	if err := cs.publisher.Publish(ctx, event); err != nil {
		cs.logger.Warn("ChatService", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func (cs *chatService) pageSize(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, apperror.Validation("limit must not be negative")
	case requested == 0:
		return cs.cfg.DefaultPageSize, nil
	case requested > cs.cfg.MaxPageSize:
		return cs.cfg.MaxPageSize, nil
	}
	return requested, nil
}

func normalizeCharacterKeys(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, apperror.Validation("at least one character is required")
	}
	if len(raw) > MaxSessionCharacters {
		return nil, apperror.Validationf("at most %d characters are allowed", MaxSessionCharacters)
	}

	seen := make(map[string]bool, len(raw))
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			return nil, apperror.Validation("character keys must not be blank")
		}
		if seen[key] {
			return nil, apperror.Validationf("character %q is listed twice", key)
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}
