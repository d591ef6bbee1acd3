// Package orchestrator runs one AI turn of a Council or Decision chat session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"companion-be/internal/entity"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/repository/contract"
	"companion-be/pkg/council/prompt"
	"companion-be/pkg/council/schema"
	"companion-be/pkg/council/stream"
	"companion-be/pkg/llm/structured"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "Orchestrator"

// Completer is satisfied by *structured.Client.
type Completer interface {
	CreateStructuredResponse(ctx context.Context, req structured.Request) (string, error)
}

type Config struct {
	HistoryLimit int
	Temperature  float64
	MaxTokens    int
	Model        string
}

type Orchestrator struct {
	store   contract.ChatStore
	client  Completer
	prompts *prompt.Builder
	cfg     Config
	logger  logger.ILogger
	tracer  trace.Tracer
	now     func() time.Time
}

func New(store contract.ChatStore, client Completer, prompts *prompt.Builder, cfg Config, log logger.ILogger) *Orchestrator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &Orchestrator{
		store:   store,
		client:  client,
		prompts: prompts,
		cfg:     cfg,
		logger:  log,
		tracer:  otel.Tracer("companion-be/council"),
		now:     time.Now,
	}
}

// Turn is the input of one orchestration. The user message is already persisted.
type Turn struct {
	Session       *entity.ChatSession
	UserInput     string
	UserMessageId uuid.UUID
}

type turnContext struct {
	session      *entity.ChatSession
	participants []*entity.ChatParticipant
	user         *entity.UserContext
	history      []*entity.ChatMessage
	latest       time.Time
}

// Run executes a turn. With a nil sink the result is only returned; otherwise the
// persisted units are also emitted in order, after the commit.
func (o *Orchestrator) Run(ctx context.Context, turn Turn, sink stream.Sink) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "council.turn", trace.WithAttributes(
		attribute.String("chat.session_id", turn.Session.Id.String()),
		attribute.String("chat.mode", string(turn.Session.Mode)),
		attribute.Bool("chat.streaming", sink != nil),
	))
	defer span.End()

	start := time.Now()
	result, err := o.run(ctx, turn, sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error(module, "Turn failed", map[string]interface{}{
			"session_id":  turn.Session.Id.String(),
			"mode":        turn.Session.Mode,
			"kind":        apperror.KindOf(err),
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	span.SetAttributes(attribute.Int("chat.persisted_messages", len(result.MessageIds)))
	o.logger.Info(module, "Turn completed", map[string]interface{}{
		"session_id":  turn.Session.Id.String(),
		"mode":        result.Mode,
		"messages":    len(result.MessageIds),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, turn Turn, sink stream.Sink) (*Result, error) {
	tc, err := o.load(ctx, turn)
	if err != nil {
		return nil, err
	}

	switch tc.session.Mode {
	case entity.ChatModeCouncil:
		return o.runCouncil(ctx, tc, turn, sink)
	case entity.ChatModeDecision:
		return o.runDecision(ctx, tc, turn, sink)
	default:
		return nil, apperror.Validationf("unsupported chat mode %q", tc.session.Mode)
	}
}

func (o *Orchestrator) load(ctx context.Context, turn Turn) (*turnContext, error) {
	session, err := o.store.FindSession(ctx, turn.Session.Id)
	if err != nil {
		return nil, apperror.Internal("failed to load chat session", err)
	}
	if session == nil {
		return nil, apperror.NotFound("chat session not found or closed")
	}

	participants, err := o.store.FindParticipants(ctx, session.Id)
	if err != nil {
		return nil, apperror.Internal("failed to load participants", err)
	}
	if len(participants) == 0 {
		return nil, apperror.Internal("chat session has no participants", nil)
	}
	for _, p := range participants {
		if p.Character == nil {
			return nil, apperror.Internal(fmt.Sprintf("participant %d has no character", p.OrderIndex), nil)
		}
	}

	user, err := o.store.FindUserContext(ctx, session.UserId)
	if err != nil {
		return nil, apperror.Internal("failed to load user context", err)
	}

	// One extra row so the window stays full after dropping the current user message.
	recent, err := o.store.ListMessages(ctx, contract.MessageQuery{
		SessionId:    session.Id,
		Limit:        o.cfg.HistoryLimit + 1,
		ExcludeRoles: []entity.MessageRole{entity.MessageRoleSystem},
	})
	if err != nil {
		return nil, apperror.Internal("failed to load history", err)
	}

	newest, err := o.store.NewestMessageTime(ctx, session.Id)
	if err != nil {
		return nil, apperror.Internal("failed to load history", err)
	}

	tc := &turnContext{session: session, participants: participants, user: user, latest: newest}
	for _, msg := range recent {
		if msg.CreatedAt.After(tc.latest) {
			tc.latest = msg.CreatedAt
		}
		if msg.Id == turn.UserMessageId {
			continue
		}
		tc.history = append(tc.history, msg)
	}
	if len(tc.history) > o.cfg.HistoryLimit {
		tc.history = tc.history[len(tc.history)-o.cfg.HistoryLimit:]
	}
	return tc, nil
}

// complete builds the prompt, performs the single completion call and validates the answer.
func (o *Orchestrator) complete(ctx context.Context, tc *turnContext, turn Turn) (*schema.Response, error) {
	format, ok := schema.ResponseFormatFor(tc.session.Mode)
	if !ok {
		return nil, apperror.Validationf("unsupported chat mode %q", tc.session.Mode)
	}

	characters := make([]*entity.Character, len(tc.participants))
	for i, p := range tc.participants {
		characters[i] = p.Character
	}

	messages := o.prompts.Messages(prompt.Input{
		Mode:       tc.session.Mode,
		Characters: characters,
		History:    tc.history,
		UserInput:  turn.UserInput,
		User:       tc.user,
	})

	raw, err := o.client.CreateStructuredResponse(ctx, structured.Request{
		Messages:       messages,
		ResponseFormat: format,
		Temperature:    o.cfg.Temperature,
		MaxTokens:      o.cfg.MaxTokens,
		Model:          o.cfg.Model,
	})
	if err != nil {
		return nil, apperror.Upstream("ai completion failed", err)
	}

	res, err := schema.Validate(tc.session.Mode, raw)
	if err != nil {
		return nil, malformed(err)
	}
	return res, nil
}

// match pairs every participant with exactly one AI item, in participant order.
func match(mode entity.ChatMode, participants []*entity.ChatParticipant, items []schema.CharacterItem) ([]schema.CharacterItem, error) {
	byKey := make(map[string]schema.CharacterItem, len(items))
	known := make(map[string]bool, len(participants))
	for _, p := range participants {
		known[p.Character.Key] = true
	}

	for _, it := range items {
		if !known[it.CharacterKey] {
			return nil, malformed(&schema.MalformedError{Mode: mode, Reason: fmt.Sprintf("unknown characterKey %q", it.CharacterKey)})
		}
		if _, dup := byKey[it.CharacterKey]; dup {
			return nil, malformed(&schema.MalformedError{Mode: mode, Reason: fmt.Sprintf("duplicate characterKey %q", it.CharacterKey)})
		}
		byKey[it.CharacterKey] = it
	}

	ordered := make([]schema.CharacterItem, 0, len(participants))
	for _, p := range participants {
		it, ok := byKey[p.Character.Key]
		if !ok {
			return nil, malformed(&schema.MalformedError{Mode: mode, Reason: fmt.Sprintf("missing response for characterKey %q", p.Character.Key)})
		}
		ordered = append(ordered, it)
	}
	return ordered, nil
}

func malformed(err error) error {
	var m *schema.MalformedError
	if errors.As(err, &m) {
		return apperror.UpstreamMalformed("ai response malformed", err)
	}
	return apperror.Internal("ai response validation failed", err)
}

// clock hands out strictly increasing millisecond timestamps after the newest stored message.
type clock struct {
	next time.Time
}

func (o *Orchestrator) newClock(latest time.Time) *clock {
	return &clock{next: entity.NextMessageTime(o.now(), latest)}
}

func (c *clock) tick() time.Time {
	t := c.next
	c.next = c.next.Add(time.Millisecond)
	return t
}

func (o *Orchestrator) persist(ctx context.Context, sessionId uuid.UUID, messages []*entity.ChatMessage) error {
	if err := o.store.AppendMessages(ctx, sessionId, messages); err != nil {
		return apperror.Internal("failed to persist turn", err)
	}
	return nil
}

// emitter stops at the first failed write; the turn is already committed by then.
type emitter struct {
	sink      stream.Sink
	logger    logger.ILogger
	sessionId uuid.UUID
	failed    bool
}

func (e *emitter) emit(eventType stream.EventType, data interface{}) {
	if e.sink == nil || e.failed {
		return
	}
	if err := e.sink.Emit(stream.NewEvent(eventType, data)); err != nil {
		e.failed = true
		e.logger.Warn(module, "Stream write failed, remaining events dropped", map[string]interface{}{
			"session_id": e.sessionId.String(),
			"event":      eventType,
			"error":      err.Error(),
		})
	}
}
