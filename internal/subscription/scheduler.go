package subscription

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler runs subscriptions when their interval elapses and whenever a
// capture is signalled through Notify.
type Scheduler struct {
	runner   *Runner
	subs     []Subscription
	interval time.Duration
	next     map[string]time.Time
	trigger  chan struct{}
}

// NewScheduler uses interval for subscriptions that do not set their own.
func NewScheduler(runner *Runner, subs []Subscription, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		subs:     subs,
		interval: interval,
		next:     map[string]time.Time{},
		trigger:  make(chan struct{}, 1),
	}
}

// Notify asks for every subscription to run. It never blocks; signals
// arriving while a run is pending are coalesced.
func (s *Scheduler) Notify() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.subs) == 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.tick())
	defer ticker.Stop()

	log.Info().Int("subscriptions", len(s.subs)).Msg("subscription scheduler started")
	s.runDue(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.runDue(ctx, now)
		case <-s.trigger:
			s.runAll(ctx, time.Now())
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	for _, sub := range s.subs {
		if now.Before(s.next[sub.Name]) {
			continue
		}
		s.run(ctx, sub, now)
	}
}

func (s *Scheduler) runAll(ctx context.Context, now time.Time) {
	for _, sub := range s.subs {
		s.run(ctx, sub, now)
	}
}

func (s *Scheduler) run(ctx context.Context, sub Subscription, now time.Time) {
	if ctx.Err() != nil {
		return
	}
	if err := s.runner.Run(ctx, sub); err != nil {
		log.Error().Err(err).Str("subscription", sub.Name).Msg("subscription run failed")
	}
	s.next[sub.Name] = now.Add(s.every(sub))
}

func (s *Scheduler) every(sub Subscription) time.Duration {
	if sub.Interval > 0 {
		return sub.Interval
	}
	return s.interval
}

// tick is the shortest interval of any subscription.
func (s *Scheduler) tick() time.Duration {
	d := s.interval
	for _, sub := range s.subs {
		if e := s.every(sub); e < d {
			d = e
		}
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}
