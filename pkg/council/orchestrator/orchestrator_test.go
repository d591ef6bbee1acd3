package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"companion-be/internal/entity"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/memory"
	"companion-be/pkg/council/prompt"
	"companion-be/pkg/council/stream"
	"companion-be/pkg/llm"
	"companion-be/pkg/llm/structured"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedCompleter struct {
	raw   string
	err   error
	calls int
	last  structured.Request
}

func (c *scriptedCompleter) CreateStructuredResponse(ctx context.Context, req structured.Request) (string, error) {
	c.calls++
	c.last = req
	return c.raw, c.err
}

type fixture struct {
	store   *memory.ChatStore
	session *entity.ChatSession
	userMsg *entity.ChatMessage
}

var catalog = map[string]string{
	"moises":     "Moisés",
	"salomao":    "Salomão",
	"jose-egito": "José do Egito",
}

func newFixture(t *testing.T, mode entity.ChatMode, keys []string, input string) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewChatStore()

	for key, name := range catalog {
		store.PutCharacter(&entity.Character{Key: key, Name: name, BasePrompt: "Você é " + name, IsActive: true})
	}
	chars, err := store.FindCharactersByKeys(ctx, keys)
	require.NoError(t, err)

	session := &entity.ChatSession{UserId: uuid.New(), Mode: mode, Title: "teste"}
	participants := make([]*entity.ChatParticipant, len(chars))
	for i, c := range chars {
		participants[i] = &entity.ChatParticipant{CharacterId: c.Id, OrderIndex: i, Character: c}
	}
	require.NoError(t, store.CreateSession(ctx, session, participants))

	userMsg := entity.NewUserMessage(session.Id, input, entity.ModerationResult{Checked: true}, time.Now())
	require.NoError(t, store.AppendMessages(ctx, session.Id, []*entity.ChatMessage{userMsg}))

	return &fixture{store: store, session: session, userMsg: userMsg}
}

func (f *fixture) turn() Turn {
	return Turn{Session: f.session, UserInput: f.userMsg.Content, UserMessageId: f.userMsg.Id}
}

func (f *fixture) all(t *testing.T) []*entity.ChatMessage {
	t.Helper()
	msgs, err := f.store.ListMessages(context.Background(), contract.MessageQuery{SessionId: f.session.Id})
	require.NoError(t, err)
	return msgs
}

func newOrchestrator(store contract.ChatStore, c Completer) *Orchestrator {
	return New(store, c, prompt.NewBuilder("pt-BR", 10), Config{HistoryLimit: 20, Temperature: 0.7, MaxTokens: 1000}, logger.NewNopLogger())
}

const councilJSON = `{
  "mode": "COUNCIL",
  "messages": [
    {"characterKey": "moises", "characterName": "Moisés", "content": "Confie no caminho."},
    {"characterKey": "salomao", "characterName": "Salomão", "content": "Busque sabedoria."}
  ],
  "suggested_topics": ["Oração", "Descanso", "Propósito"]
}`

const decisionJSON = `{
  "mode": "DECISION",
  "analyses": [
    {"characterKey": "jose-egito", "characterName": "José do Egito", "summary": "Planeje os anos de escassez."},
    {"characterKey": "salomao", "characterName": "Salomão", "summary": "Pese os dois lados."}
  ],
  "final_decision": {"title": "Aceitar a proposta", "content": "Aceite com prazo de revisão.", "rationale": "Equilibra risco e crescimento."}
}`

func authorKeys(msgs []*entity.ChatMessage, role entity.MessageRole) []string {
	var keys []string
	for _, m := range msgs {
		if m.Role == role && m.AuthorKey != nil {
			keys = append(keys, *m.AuthorKey)
		}
	}
	return keys
}

func countRole(msgs []*entity.ChatMessage, role entity.MessageRole) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

func TestCouncilTurn(t *testing.T) {
	f := newFixture(t, entity.ChatModeCouncil, []string{"moises", "salomao"}, "Como lidar com a ansiedade?")
	c := &scriptedCompleter{raw: councilJSON}

	result, err := newOrchestrator(f.store, c).Run(context.Background(), f.turn(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c.calls)
	require.Len(t, c.last.Messages, 2)
	assert.Equal(t, llm.RoleSystem, c.last.Messages[0].Role)
	assert.Equal(t, "Como lidar com a ansiedade?", c.last.Messages[1].Content)
	assert.Equal(t, "council_response", c.last.ResponseFormat.Name)
	assert.NotContains(t, c.last.Messages[0].Content, "<conversation_history>")

	msgs := f.all(t)
	assert.Equal(t, []string{"moises", "salomao"}, authorKeys(msgs, entity.MessageRoleCharacter))
	assert.Equal(t, 1, countRole(msgs, entity.MessageRoleSystem))
	assert.Equal(t, 0, countRole(msgs, entity.MessageRoleSummary))

	system := msgs[len(msgs)-1]
	require.Equal(t, entity.MessageRoleSystem, system.Role)
	assert.Equal(t, []string{"Oração", "Descanso", "Propósito"}, system.Payload.(entity.SystemPayload).SuggestedTopics)

	first := msgs[1].Payload.(entity.CharacterPayload)
	assert.Equal(t, entity.CharacterRoundResponse, first.Round)
	assert.Equal(t, 0, first.CharacterOrder)

	require.Len(t, result.Responses, 2)
	assert.Equal(t, "Confie no caminho.", result.Responses[0].Content)
	assert.Len(t, result.MessageIds, 3)
	assert.Nil(t, result.Decision)

	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt), "message %d not after %d", i, i-1)
	}
}

func TestDecisionTurn(t *testing.T) {
	f := newFixture(t, entity.ChatModeDecision, []string{"jose-egito", "salomao"}, "Devo aceitar a proposta de emprego?")

	result, err := newOrchestrator(f.store, &scriptedCompleter{raw: decisionJSON}).Run(context.Background(), f.turn(), nil)
	require.NoError(t, err)

	msgs := f.all(t)
	assert.Equal(t, []string{"jose-egito", "salomao"}, authorKeys(msgs, entity.MessageRoleCharacter))
	assert.Equal(t, 1, countRole(msgs, entity.MessageRoleSummary))

	var summary *entity.ChatMessage
	for _, m := range msgs {
		if m.Role == entity.MessageRoleSummary {
			summary = m
		}
	}
	require.NotNil(t, summary)
	assert.Equal(t, "Aceite com prazo de revisão.", summary.Content)
	assert.Equal(t, entity.SummaryAuthorKey, *summary.AuthorKey)
	payload := summary.Payload.(entity.SummaryPayload)
	assert.Equal(t, "Aceitar a proposta", payload.Title)
	assert.Equal(t, "Equilibra risco e crescimento.", payload.Rationale)

	require.NotNil(t, result.Decision)
	assert.Len(t, result.Analyses, 2)
	assert.Equal(t, 3, len(result.SuggestedTopics), "absent topics fall back to the default list")
}

func TestParticipantOrderWinsOverModelOrder(t *testing.T) {
	f := newFixture(t, entity.ChatModeCouncil, []string{"moises", "salomao"}, "oi")
	reversed := `{"mode":"COUNCIL","messages":[
		{"characterKey":"salomao","characterName":"Salomão","content":"b"},
		{"characterKey":"moises","characterName":"Moisés","content":"a"}]}`

	_, err := newOrchestrator(f.store, &scriptedCompleter{raw: reversed}).Run(context.Background(), f.turn(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"moises", "salomao"}, authorKeys(f.all(t), entity.MessageRoleCharacter))
}

func TestFailedTurnWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		c    *scriptedCompleter
		kind apperror.Kind
	}{
		{"upstream error", &scriptedCompleter{err: structured.ErrUpstreamFailed}, apperror.KindUpstream},
		{"invalid json", &scriptedCompleter{raw: "not json"}, apperror.KindUpstreamMalformed},
		{"wrong mode", &scriptedCompleter{raw: decisionJSON}, apperror.KindUpstreamMalformed},
		{"unknown character", &scriptedCompleter{raw: `{"mode":"COUNCIL","messages":[
			{"characterKey":"moises","characterName":"Moisés","content":"a"},
			{"characterKey":"davi","characterName":"Davi","content":"b"}]}`}, apperror.KindUpstreamMalformed},
		{"duplicate character", &scriptedCompleter{raw: `{"mode":"COUNCIL","messages":[
			{"characterKey":"moises","characterName":"Moisés","content":"a"},
			{"characterKey":"moises","characterName":"Moisés","content":"b"}]}`}, apperror.KindUpstreamMalformed},
		{"missing character", &scriptedCompleter{raw: `{"mode":"COUNCIL","messages":[
			{"characterKey":"moises","characterName":"Moisés","content":"a"}]}`}, apperror.KindUpstreamMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, entity.ChatModeCouncil, []string{"moises", "salomao"}, "oi")
			rec := &stream.Recorder{}

			result, err := newOrchestrator(f.store, tt.c).Run(context.Background(), f.turn(), rec)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.kind, apperror.KindOf(err))

			assert.Equal(t, 1, f.store.MessageCount(f.session.Id), "only the user message remains")
			assert.Empty(t, rec.Events())
		})
	}
}

// appendFailingStore fails every write after the fixture is seeded.
type appendFailingStore struct {
	contract.ChatStore
	err error
}

func (s appendFailingStore) AppendMessages(ctx context.Context, sessionId uuid.UUID, messages []*entity.ChatMessage) error {
	return s.err
}

func TestPersistFailureEmitsNothing(t *testing.T) {
	f := newFixture(t, entity.ChatModeCouncil, []string{"moises", "salomao"}, "oi")
	failing := appendFailingStore{ChatStore: f.store, err: errors.New("disk full")}
	rec := &stream.Recorder{}

	_, err := newOrchestrator(failing, &scriptedCompleter{raw: councilJSON}).Run(context.Background(), f.turn(), rec)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Empty(t, rec.Events())
}

func TestStreamingOrderMirrorsPersistence(t *testing.T) {
	t.Run("council", func(t *testing.T) {
		f := newFixture(t, entity.ChatModeCouncil, []string{"moises", "salomao"}, "oi")
		rec := &stream.Recorder{}

		_, err := newOrchestrator(f.store, &scriptedCompleter{raw: councilJSON}).Run(context.Background(), f.turn(), rec)
		require.NoError(t, err)

		assert.Equal(t, []stream.EventType{
			stream.EventCouncilStart,
			stream.EventCharacterResponse,
			stream.EventCharacterResponse,
			stream.EventCouncilComplete,
		}, rec.Types())

		events := rec.Events()
		msgs := f.all(t)
		assert.Equal(t, msgs[1].Id, events[1].Data.(CharacterReply).MessageId)
		assert.Equal(t, msgs[2].Id, events[2].Data.(CharacterReply).MessageId)
		assert.Len(t, events[0].Data.(StartData).Participants, 2)
	})

	t.Run("decision", func(t *testing.T) {
		f := newFixture(t, entity.ChatModeDecision, []string{"jose-egito", "salomao"}, "devo?")
		rec := &stream.Recorder{}

		_, err := newOrchestrator(f.store, &scriptedCompleter{raw: decisionJSON}).Run(context.Background(), f.turn(), rec)
		require.NoError(t, err)

		assert.Equal(t, []stream.EventType{
			stream.EventDecisionStart,
			stream.EventCharacterAnalysis,
			stream.EventCharacterAnalysis,
			stream.EventFinalDecision,
			stream.EventDecisionComplete,
		}, rec.Types())
	})
}

type failingSink struct{ writes int }

func (s *failingSink) Emit(stream.Event) error {
	s.writes++
	return errors.New("client went away")
}

func TestBrokenStreamKeepsCommittedTurn(t *testing.T) {
	f := newFixture(t, entity.ChatModeCouncil, []string{"moises", "salomao"}, "oi")
	sink := &failingSink{}

	result, err := newOrchestrator(f.store, &scriptedCompleter{raw: councilJSON}).Run(context.Background(), f.turn(), sink)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 1, sink.writes)
	assert.Equal(t, 4, f.store.MessageCount(f.session.Id))
}

func TestHistoryExcludesCurrentMessageAndSystemRows(t *testing.T) {
	f := newFixture(t, entity.ChatModeCouncil, []string{"moises", "salomao"}, "primeira pergunta")
	o := newOrchestrator(f.store, &scriptedCompleter{raw: councilJSON})
	_, err := o.Run(context.Background(), f.turn(), nil)
	require.NoError(t, err)

	next := entity.NewUserMessage(f.session.Id, "segunda pergunta", entity.ModerationResult{}, time.Now().Add(time.Second))
	require.NoError(t, f.store.AppendMessages(context.Background(), f.session.Id, []*entity.ChatMessage{next}))

	c := &scriptedCompleter{raw: councilJSON}
	o.client = c
	_, err = o.Run(context.Background(), Turn{Session: f.session, UserInput: next.Content, UserMessageId: next.Id}, nil)
	require.NoError(t, err)

	system := c.last.Messages[0].Content
	assert.Contains(t, system, "USER: primeira pergunta")
	assert.Contains(t, system, "Moisés: Confie no caminho.")
	assert.NotContains(t, system, "USER: segunda pergunta")
	assert.NotContains(t, system, "suggested_topics\n")
}

func TestMissingSession(t *testing.T) {
	store := memory.NewChatStore()
	ghost := &entity.ChatSession{Id: uuid.New(), Mode: entity.ChatModeCouncil}

	_, err := newOrchestrator(store, &scriptedCompleter{raw: councilJSON}).Run(context.Background(), Turn{Session: ghost}, nil)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
