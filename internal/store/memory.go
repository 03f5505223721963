package store

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/PratikDhanave/epcis-query-service/internal/masterdata"
	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

// MemoryStore keeps captured events in process. It backs tests and
// single-node development setups.
type MemoryStore struct {
	mu        sync.RWMutex
	events    []models.Event
	captures  map[string]struct{}
	nextEvent int64
	nextReq   int64
	directory *masterdata.Directory
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		captures:  map[string]struct{}{},
		directory: masterdata.NewDirectory(),
		now:       time.Now,
	}
}

// Query evaluates the plan against a snapshot of the captured events.
func (m *MemoryStore) Query(ctx context.Context, plan *query.Plan) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	snapshot := make([]models.Event, len(m.events))
	copy(snapshot, m.events)
	m.mu.RUnlock()

	q := plan.Apply(newMemQuery(snapshot, m.directory)).(*memQuery)
	return q.result()
}

// Capture records the request and its events. Capture ids are unique.
func (m *MemoryStore) Capture(ctx context.Context, req *models.Request) (models.CaptureResponse, error) {
	if err := ctx.Err(); err != nil {
		return models.CaptureResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prepareRequest(req, m.now())
	if _, dup := m.captures[req.CaptureID]; dup {
		return models.CaptureResponse{}, errors.Errorf("capture %s already exists", req.CaptureID)
	}
	m.captures[req.CaptureID] = struct{}{}

	m.nextReq++
	req.ID = m.nextReq

	// Events point at a copy of the request header, not at the batch.
	header := *req
	header.Events = nil
	header.Masterdata = nil

	for i := range req.Events {
		m.nextEvent++
		req.Events[i].ID = m.nextEvent
		ev := req.Events[i]
		ev.Request = &header
		m.events = append(m.events, ev)
	}
	m.directory.Put(req.Masterdata...)

	return models.CaptureResponse{
		CaptureID:  req.CaptureID,
		RequestID:  req.ID,
		RecordTime: req.RecordTime,
		EventCount: len(req.Events),
	}, nil
}

func (m *MemoryStore) PutMasterdata(ctx context.Context, records ...models.MasterData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.directory.Put(records...)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() {}
