package subscription

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/PratikDhanave/epcis-query-service/internal/metrics"
	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

// overlap widens the record time lower bound to catch captures committed
// out of order around the previous execution.
const overlap = 10 * time.Second

// Querier runs a query plan. It is satisfied by every store.EventStore.
type Querier interface {
	Query(ctx context.Context, plan *query.Plan) ([]models.Event, error)
}

// Runner executes subscriptions against a store and advances their cursors.
type Runner struct {
	store    Querier
	cursors  CursorStore
	notifier Notifier
	now      func() time.Time
}

func NewRunner(st Querier, cursors CursorStore, notifier Notifier) *Runner {
	return &Runner{store: st, cursors: cursors, notifier: notifier, now: time.Now}
}

// Run executes the subscription once. Events recorded since the previous
// successful execution are handed to the notifier; an empty result is only
// delivered when the subscription asks for it. A failed execution is
// reported to the notifier and leaves the cursor where it was.
func (r *Runner) Run(ctx context.Context, sub Subscription) error {
	started := r.now().UTC()

	cur, found, err := r.cursors.Load(ctx, sub.Name)
	if err != nil {
		return err
	}

	params := sub.params()
	if found {
		since := cur.LastRun.Add(-overlap)
		params = append(params, query.NewParameter("GE_recordTime", since.Format(time.RFC3339Nano)))
	}

	events, err := r.execute(ctx, params)
	if err != nil {
		metrics.SubscriptionRunsTotal.WithLabelValues("error").Inc()
		if nerr := r.notifier.Fail(ctx, sub, err); nerr != nil {
			return errors.Wrapf(nerr, "failed to report error of subscription %q", sub.Name)
		}
		return errors.Wrapf(err, "subscription %q", sub.Name)
	}
	seen := requestIDs(events)
	events = undelivered(events, cur.RequestIDs)

	if len(events) > 0 || sub.ReportIfEmpty {
		resp := models.QueryResponse{QueryName: sub.QueryName, EventList: events}
		if err := r.notifier.Deliver(ctx, sub, resp); err != nil {
			metrics.SubscriptionRunsTotal.WithLabelValues("error").Inc()
			return errors.Wrapf(err, "failed to deliver subscription %q", sub.Name)
		}
	}

	if len(events) == 0 {
		metrics.SubscriptionRunsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.SubscriptionRunsTotal.WithLabelValues("delivered").Inc()
	}

	return r.cursors.Save(ctx, sub.Name, Cursor{
		LastRun:    started,
		RequestIDs: seen,
	})
}

func (r *Runner) execute(ctx context.Context, params []query.Parameter) ([]models.Event, error) {
	plan, err := query.Build(params)
	if err != nil {
		return nil, err
	}
	return r.store.Query(ctx, plan)
}

// undelivered drops events of requests the previous execution already
// delivered. The overlap window would otherwise report them twice.
func undelivered(events []models.Event, delivered []int64) []models.Event {
	if len(delivered) == 0 {
		return events
	}
	skip := make(map[int64]struct{}, len(delivered))
	for _, id := range delivered {
		skip[id] = struct{}{}
	}

	out := events[:0:0]
	for _, ev := range events {
		if ev.Request != nil {
			if _, ok := skip[ev.Request.ID]; ok {
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

func requestIDs(events []models.Event) []int64 {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, ev := range events {
		if ev.Request == nil {
			continue
		}
		if _, ok := seen[ev.Request.ID]; ok {
			continue
		}
		seen[ev.Request.ID] = struct{}{}
		ids = append(ids, ev.Request.ID)
	}
	return ids
}
