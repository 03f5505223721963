package store

import (
	"context"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

// EventStore is the repository behind the HTTP API and the subscription
// runner. Query evaluates a plan built by the query package.
type EventStore interface {
	Query(ctx context.Context, plan *query.Plan) ([]models.Event, error)
	Capture(ctx context.Context, req *models.Request) (models.CaptureResponse, error)
	PutMasterdata(ctx context.Context, records ...models.MasterData) error
	Ping(ctx context.Context) error
	Close()
}

var (
	_ EventStore = (*PostgresStore)(nil)
	_ EventStore = (*DuckStore)(nil)
	_ EventStore = (*MemoryStore)(nil)
	_ EventStore = (*Instrumented)(nil)
)
