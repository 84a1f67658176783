package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/ports"
)

// SessionTopic is the topic session events are published to
const SessionTopic = "dicer.session"

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     SessionTopic,
	}
}

// PublishSessionEvent publishes a session event
func (p *WatermillPublisher) PublishSessionEvent(ctx context.Context, event core.SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("type", string(event.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
