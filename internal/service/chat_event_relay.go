package service

import (
	"context"

	"companion-be/internal/pkg/logger"
	"companion-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// chatEventRelay forwards in-process chat events to the cross-service publisher (NATS).
type chatEventRelay struct {
	pubSub    *gochannel.GoChannel
	topicName string
	forward   events.Publisher
	logger    logger.ILogger
}

func NewChatEventRelay(pubSub *gochannel.GoChannel, topicName string, forward events.Publisher, log logger.ILogger) IConsumerService {
	return &chatEventRelay{
		pubSub:    pubSub,
		topicName: topicName,
		forward:   forward,
		logger:    log,
	}
}

// Consume subscribes and returns; messages are processed on a background goroutine until ctx is done.
func (r *chatEventRelay) Consume(ctx context.Context) error {
	messages, err := r.pubSub.Subscribe(ctx, r.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			r.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (r *chatEventRelay) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg)
	if err != nil {
		r.logger.Error("EventRelay", "Dropping undecodable event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	// Forwarding is best effort: a NATS outage must not stall the in-process bus.
	if err := r.forward.Publish(ctx, event); err != nil {
		r.logger.Warn("EventRelay", "Failed to forward event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	r.logger.Debug("EventRelay", "Event forwarded", map[string]interface{}{"type": event.EventType()})
	msg.Ack()
}
