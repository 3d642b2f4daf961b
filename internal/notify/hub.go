package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"career-counselor/internal/model"
)

// Hub delivers session events to the subscribers connected to this instance.
// Nothing is buffered for users without a live subscriber.
type Hub struct {
	pubSub *gochannel.GoChannel
}

func NewHub(logger watermill.LoggerAdapter) *Hub {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Hub{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, logger),
	}
}

func (h *Hub) Publish(event model.SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event failed: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := h.pubSub.Publish(userTopic(event.UserID), msg); err != nil {
		return fmt.Errorf("publish to hub failed: %w", err)
	}
	return nil
}

// Subscribe streams the events of one user until ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID uint) (<-chan model.SessionEvent, error) {
	messages, err := h.pubSub.Subscribe(ctx, userTopic(userID))
	if err != nil {
		return nil, fmt.Errorf("subscribe to hub failed: %w", err)
	}

	out := make(chan model.SessionEvent, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var event model.SessionEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				msg.Ack()
				continue
			}
			select {
			case out <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Ack()
				return
			}
		}
	}()
	return out, nil
}

func (h *Hub) Close() error {
	return h.pubSub.Close()
}

func userTopic(userID uint) string {
	return fmt.Sprintf("sessions.user.%d", userID)
}
