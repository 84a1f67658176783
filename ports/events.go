package ports

import (
	"context"

	"github.com/layer-3/dicer/core"
)

// EventPublisher publishes session events
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event core.SessionEvent) error
}
