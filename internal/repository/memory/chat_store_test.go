package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"companion-be/internal/entity"
	"companion-be/internal/repository/contract"
	"companion-be/pkg/council/cursor"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, s *ChatStore, sessionId uuid.UUID, n int) []*entity.ChatMessage {
	t.Helper()
	base := time.UnixMilli(1700000000000)
	var msgs []*entity.ChatMessage
	for i := 0; i < n; i++ {
		// two messages share every timestamp to exercise the id tie-break
		at := base.Add(time.Duration(i/2) * time.Millisecond)
		msgs = append(msgs, entity.NewUserMessage(sessionId, fmt.Sprintf("m%d", i), entity.ModerationResult{}, at))
	}
	require.NoError(t, s.AppendMessages(context.Background(), sessionId, msgs))
	return msgs
}

func TestListMessagesPagesCoverEverythingOnce(t *testing.T) {
	ctx := context.Background()
	s := NewChatStore()
	sessionId := uuid.New()
	seedMessages(t, s, sessionId, 23)

	all, err := s.ListMessages(ctx, contract.MessageQuery{SessionId: sessionId})
	require.NoError(t, err)
	require.Len(t, all, 23)

	var paged []*entity.ChatMessage
	var before *cursor.Position
	for {
		page, err := s.ListMessages(ctx, contract.MessageQuery{SessionId: sessionId, Before: before, Limit: 5})
		require.NoError(t, err)
		paged = append(page, paged...)
		if len(page) < 5 {
			break
		}
		oldest := page[0]
		before = &cursor.Position{CreatedAt: oldest.CreatedAt, Id: oldest.Id}
	}

	require.Len(t, paged, len(all))
	for i := range all {
		assert.Equal(t, all[i].Id, paged[i].Id)
	}
}

func TestListMessagesExcludesRoles(t *testing.T) {
	ctx := context.Background()
	s := NewChatStore()
	sessionId := uuid.New()
	now := time.Now()

	require.NoError(t, s.AppendMessages(ctx, sessionId, []*entity.ChatMessage{
		entity.NewUserMessage(sessionId, "oi", entity.ModerationResult{}, now),
		entity.NewSystemMessage(sessionId, entity.SystemPayload{SuggestedTopics: []string{"x"}}, now.Add(time.Millisecond)),
	}))

	msgs, err := s.ListMessages(ctx, contract.MessageQuery{SessionId: sessionId, ExcludeRoles: []entity.MessageRole{entity.MessageRoleSystem}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.MessageRoleUser, msgs[0].Role)

	latest, err := s.LatestMessage(ctx, sessionId, entity.MessageRoleSystem)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, []string{"x"}, latest.Payload.(entity.SystemPayload).SuggestedTopics)
}

func TestDeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	s := NewChatStore()
	char := &entity.Character{Key: "psi", Name: "Ana", IsActive: true}
	s.PutCharacter(char)

	session := &entity.ChatSession{UserId: uuid.New(), Mode: entity.ChatModeCouncil, Title: "t"}
	require.NoError(t, s.CreateSession(ctx, session, []*entity.ChatParticipant{{CharacterId: char.Id, OrderIndex: 0}}))
	seedMessages(t, s, session.Id, 3)

	participants, err := s.FindParticipants(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "Ana", participants[0].Character.Name)

	require.NoError(t, s.DeleteSession(ctx, session.Id))

	found, err := s.FindSession(ctx, session.Id)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Zero(t, s.MessageCount(session.Id))
}

func TestNewestMessageTimeIncludesSystemRows(t *testing.T) {
	ctx := context.Background()
	s := NewChatStore()
	sessionId := uuid.New()

	newest, err := s.NewestMessageTime(ctx, sessionId)
	require.NoError(t, err)
	assert.True(t, newest.IsZero())

	seedMessages(t, s, sessionId, 4)
	system := entity.NewSystemMessage(sessionId, entity.SystemPayload{SuggestedTopics: []string{"Fé"}}, time.UnixMilli(1700000000500))
	require.NoError(t, s.AppendMessages(ctx, sessionId, []*entity.ChatMessage{system}))

	newest, err = s.NewestMessageTime(ctx, sessionId)
	require.NoError(t, err)
	assert.True(t, newest.Equal(system.CreatedAt))
}
