package service

import (
	"context"
	"time"

	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/ports"
	"go.uber.org/zap"
)

// publish sends event when a publisher is configured. Failures are only logged.
func publish(ctx context.Context, publisher ports.EventPublisher, log *zap.Logger, event core.SessionEvent) {
	if publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := publisher.PublishSessionEvent(ctx, event); err != nil {
		log.Warn("failed to publish session event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
