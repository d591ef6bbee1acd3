package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"companion-be/internal/entity"
	"companion-be/internal/model"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/store"
	"companion-be/internal/repository/unitofwork"
	"companion-be/pkg/council/cursor"
	"companion-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, true)
	require.NoError(t, err, "Failed to connect to DB")
	require.NoError(t, db.AutoMigrate(&model.Character{}, &model.ChatSession{}, &model.ChatParticipant{}, &model.ChatMessage{}))
	return db
}

func TestGormChatStoreRoundTrip(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	chatStore := store.NewGormChatStore(unitofwork.NewRepositoryFactory(db))

	suffix := uuid.NewString()[:8]
	characters := []model.Character{
		{Key: "it-moises-" + suffix, Name: "Moisés", BasePrompt: "Você é Moisés.", IsActive: true},
		{Key: "it-salomao-" + suffix, Name: "Salomão", BasePrompt: "Você é Salomão.", IsActive: true},
	}
	require.NoError(t, db.Create(&characters).Error)
	t.Cleanup(func() {
		db.Where("key IN ?", []string{characters[0].Key, characters[1].Key}).Delete(&model.Character{})
	})

	found, err := chatStore.FindCharactersByKeys(ctx, []string{characters[1].Key, characters[0].Key})
	require.NoError(t, err)
	require.Len(t, found, 2)

	session := &entity.ChatSession{Id: uuid.New(), UserId: uuid.New(), Mode: entity.ChatModeCouncil, Title: "Integração"}
	participants := []*entity.ChatParticipant{
		{CharacterId: characters[1].Id, OrderIndex: 0},
		{CharacterId: characters[0].Id, OrderIndex: 1},
	}
	require.NoError(t, chatStore.CreateSession(ctx, session, participants))

	loaded, err := chatStore.FindParticipants(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, characters[1].Key, loaded[0].Character.Key)
	assert.Equal(t, characters[0].Key, loaded[1].Character.Key)

	base := time.Now().UTC().Truncate(time.Millisecond)
	var msgs []*entity.ChatMessage
	for i := 0; i < 12; i++ {
		msgs = append(msgs, entity.NewUserMessage(session.Id, fmt.Sprintf("m%d", i), entity.ModerationResult{}, base.Add(time.Duration(i)*time.Millisecond)))
	}
	require.NoError(t, chatStore.AppendMessages(ctx, session.Id, msgs))

	t.Run("pages equal a full fetch", func(t *testing.T) {
		all, err := chatStore.ListMessages(ctx, contract.MessageQuery{SessionId: session.Id})
		require.NoError(t, err)
		require.Len(t, all, 12)

		var paged []*entity.ChatMessage
		var before *cursor.Position
		for {
			page, err := chatStore.ListMessages(ctx, contract.MessageQuery{SessionId: session.Id, Before: before, Limit: 5})
			require.NoError(t, err)
			paged = append(page, paged...)
			if len(page) < 5 {
				break
			}
			before = &cursor.Position{CreatedAt: page[0].CreatedAt, Id: page[0].Id}
		}
		require.Len(t, paged, 12)
		for i := range all {
			assert.Equal(t, all[i].Id, paged[i].Id)
		}
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, chatStore.DeleteSession(ctx, session.Id))

		gone, err := chatStore.FindSession(ctx, session.Id)
		require.NoError(t, err)
		assert.Nil(t, gone)

		var count int64
		require.NoError(t, db.Model(&model.ChatMessage{}).Where("chat_session_id = ?", session.Id).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, db.Model(&model.ChatParticipant{}).Where("chat_session_id = ?", session.Id).Count(&count).Error)
		assert.Zero(t, count)
	})
}
