package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/PratikDhanave/epcis-query-service/internal/config"
	"github.com/PratikDhanave/epcis-query-service/internal/httpserver"
	"github.com/PratikDhanave/epcis-query-service/internal/logger"
	"github.com/PratikDhanave/epcis-query-service/internal/metrics"
	"github.com/PratikDhanave/epcis-query-service/internal/store"
	"github.com/PratikDhanave/epcis-query-service/internal/subscription"
	"github.com/PratikDhanave/epcis-query-service/internal/telemetry"
)

// main boots the service: config → logging/tracing → store → HTTP server
// and subscription scheduler.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("service stopped")
	}
	log.Info().Msg("service stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := telemetry.Init(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	base, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer base.Close()
	st := store.Instrument(base)

	cursors, err := openCursors(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCursors(cursors)

	var subs []subscription.Subscription
	if cfg.SubscriptionsFile != "" {
		if subs, err = subscription.LoadFile(cfg.SubscriptionsFile); err != nil {
			return err
		}
	}
	runner := subscription.NewRunner(st, cursors, subscription.LogNotifier{})
	scheduler := subscription.NewScheduler(runner, subs, cfg.SubscriptionInterval)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpserver.NewRouter(cfg, st, scheduler.Notify),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (store.EventStore, error) {
	switch cfg.StoreDriver {
	case "duckdb":
		return store.NewDuckStore(ctx, cfg.DuckDBPath)
	case "memory":
		return store.NewMemoryStore(), nil
	}

	db, err := store.NewPostgresStore(ctx, cfg.DBURL)
	if err != nil {
		return nil, err
	}
	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openCursors(ctx context.Context, cfg config.Config) (subscription.CursorStore, error) {
	if cfg.RedisAddr == "" {
		return subscription.NewMemoryCursors(), nil
	}
	return subscription.NewRedisCursors(ctx, cfg.RedisAddr)
}

// closeCursors releases cursor stores that hold a connection, such as Redis.
func closeCursors(cursors subscription.CursorStore) {
	closer, ok := cursors.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close cursor store")
	}
}
