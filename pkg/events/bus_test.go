package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusRoundTrip(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, ChatTopic)
	require.NoError(t, err)

	userId, sessionId := uuid.New(), uuid.New()
	require.NoError(t, NewBus(pubSub, ChatTopic).Publish(ctx, NewChatSessionCreated(userId, sessionId, "COUNCIL", "Ansiedade")))

	select {
	case msg := <-messages:
		event, err := Decode(msg)
		require.NoError(t, err)
		msg.Ack()

		assert.Equal(t, TypeChatSessionCreated, event.EventType())
		assert.Equal(t, userId.String(), event.Payload()["user_id"])
		assert.Equal(t, sessionId.String(), event.Payload()["entity_id"])
		assert.False(t, event.Timestamp().IsZero())
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}
