package store

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable event repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create postgres pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "failed to reach postgres")
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return errors.Wrapf(err, "failed to apply schema")
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Query runs the plan as a single statement.
func (p *PostgresStore) Query(ctx context.Context, plan *query.Plan) ([]models.Event, error) {
	stmt, args, err := translate(plan).SQL()
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query events")
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			id  int64
			doc string
			req models.Request
		)
		if err := rows.Scan(&id, &doc, &req.ID, &req.CaptureID, &req.RecordTime, &req.UserID); err != nil {
			return nil, errors.Wrapf(err, "failed to scan event")
		}
		ev, err := decodeEvent(id, doc, req)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, errors.Wrapf(rows.Err(), "failed to read events")
}

// Capture stores the request and all of its events in one transaction.
func (p *PostgresStore) Capture(ctx context.Context, req *models.Request) (models.CaptureResponse, error) {
	prepareRequest(req, time.Now())

	var resp models.CaptureResponse
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) (err error) {
		resp, err = writeRequest(ctx, pgxWriter{tx}, req)
		return
	})
	return resp, err
}

// PutMasterdata replaces the stored version of each record.
func (p *PostgresStore) PutMasterdata(ctx context.Context, records ...models.MasterData) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return writeMasterdata(ctx, pgxWriter{tx}, records)
	})
}

type pgxWriter struct {
	tx pgx.Tx
}

func (w pgxWriter) exec(ctx context.Context, sql string, args ...any) error {
	_, err := w.tx.Exec(ctx, sql, args...)
	return err
}

func (w pgxWriter) insertID(ctx context.Context, sql string, args ...any) (id int64, err error) {
	err = w.tx.QueryRow(ctx, sql, args...).Scan(&id)
	return
}
