package subscription

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
)

// Notifier receives the outcome of each subscription execution.
type Notifier interface {
	Deliver(ctx context.Context, sub Subscription, resp models.QueryResponse) error
	Fail(ctx context.Context, sub Subscription, err error) error
}

// LogNotifier writes execution outcomes to the global logger.
type LogNotifier struct{}

func (LogNotifier) Deliver(_ context.Context, sub Subscription, resp models.QueryResponse) error {
	log.Info().
		Str("subscription", sub.Name).
		Str("query", resp.QueryName).
		Int("events", len(resp.EventList)).
		Msg("subscription results")
	return nil
}

func (LogNotifier) Fail(_ context.Context, sub Subscription, err error) error {
	log.Error().
		Err(err).
		Str("subscription", sub.Name).
		Msg("subscription failed")
	return nil
}
