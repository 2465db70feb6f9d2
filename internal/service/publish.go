package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/pharmacy-helpdesk/internal/events"
)

// publishEvent delivers event after the write has committed. Handler
// failures never undo the write; they are logged instead.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
