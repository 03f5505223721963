package store

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/pkg/errors"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

//go:embed schema_duckdb.sql
var duckSchemaSQL string

// DuckStore is an embedded event repository on DuckDB. An empty path
// opens an in-memory database.
type DuckStore struct {
	db *sql.DB
}

func NewDuckStore(ctx context.Context, path string) (dk *DuckStore, err error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		err = errors.Wrapf(err, "failed to open duckdb %q", path)
		return
	}
	// DuckDB has a single writer; serialise access through one connection.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, duckSchemaSQL); err != nil {
		db.Close()
		err = errors.Wrapf(err, "failed to apply duckdb schema")
		return
	}

	dk = &DuckStore{db: db}
	return
}

func (dk *DuckStore) Ping(ctx context.Context) error {
	return dk.db.PingContext(ctx)
}

func (dk *DuckStore) Close() {
	dk.db.Close()
}

// Query runs the plan as a single statement.
func (dk *DuckStore) Query(ctx context.Context, plan *query.Plan) (events []models.Event, err error) {
	stmt, args, err := translate(plan).SQL()
	if err != nil {
		return
	}

	rows, err := dk.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		err = errors.Wrapf(err, "failed to query events")
		return
	}
	defer rows.Close()

	events = []models.Event{}
	for rows.Next() {
		var (
			id  int64
			doc string
			req models.Request
			ev  models.Event
		)
		if err = rows.Scan(&id, &doc, &req.ID, &req.CaptureID, &req.RecordTime, &req.UserID); err != nil {
			err = errors.Wrapf(err, "failed to scan event")
			return
		}
		if ev, err = decodeEvent(id, doc, req); err != nil {
			return
		}
		events = append(events, ev)
	}
	err = errors.Wrapf(rows.Err(), "failed to read events")
	return
}

// Capture stores the request and all of its events in one transaction.
func (dk *DuckStore) Capture(ctx context.Context, req *models.Request) (resp models.CaptureResponse, err error) {
	prepareRequest(req, time.Now())

	err = dk.inTx(ctx, func(w writer) (err error) {
		resp, err = writeRequest(ctx, w, req)
		return
	})
	return
}

// PutMasterdata replaces the stored version of each record.
func (dk *DuckStore) PutMasterdata(ctx context.Context, records ...models.MasterData) error {
	return dk.inTx(ctx, func(w writer) error {
		return writeMasterdata(ctx, w, records)
	})
}

func (dk *DuckStore) inTx(ctx context.Context, fn func(writer) error) (err error) {
	tx, err := dk.db.BeginTx(ctx, nil)
	if err != nil {
		err = errors.Wrapf(err, "failed to begin duckdb transaction")
		return
	}

	if err = fn(sqlWriter{tx}); err != nil {
		tx.Rollback()
		return
	}
	err = errors.Wrapf(tx.Commit(), "failed to commit duckdb transaction")
	return
}

type sqlWriter struct {
	tx *sql.Tx
}

func (w sqlWriter) exec(ctx context.Context, stmt string, args ...any) error {
	_, err := w.tx.ExecContext(ctx, stmt, args...)
	return err
}

func (w sqlWriter) insertID(ctx context.Context, stmt string, args ...any) (id int64, err error) {
	err = w.tx.QueryRowContext(ctx, stmt, args...).Scan(&id)
	return
}
