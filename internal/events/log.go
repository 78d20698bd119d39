package events

import (
	"context"

	"backoffice/internal/domain"
	"backoffice/pkg/logger"
)

// LogPublisher пишет события в лог; используется, когда Kafka не настроена
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, events []domain.Event) {
	for _, e := range events {
		logger.Log.Info("domain event",
			logger.String("event", e.EventName()),
			logger.String("event_id", e.EventID()),
			logger.Stringer("aggregate_id", e.AggregateID()),
		)
	}
}
