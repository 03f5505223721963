package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Cursor is the execution state of a subscription.
type Cursor struct {
	// LastRun is the start of the last successful execution.
	LastRun time.Time `json:"lastRun"`

	// RequestIDs were inside the window of the last execution. Events from
	// these requests are not delivered again by the next one.
	RequestIDs []int64 `json:"requestIDs,omitempty"`
}

// CursorStore persists cursors across executions and restarts.
type CursorStore interface {
	Load(ctx context.Context, name string) (Cursor, bool, error)
	Save(ctx context.Context, name string, c Cursor) error
}

// MemoryCursors keeps cursors in process.
type MemoryCursors struct {
	mu      sync.Mutex
	cursors map[string]Cursor
}

func NewMemoryCursors() *MemoryCursors {
	return &MemoryCursors{cursors: map[string]Cursor{}}
}

func (m *MemoryCursors) Load(_ context.Context, name string) (Cursor, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cursors[name]
	return c, ok, nil
}

func (m *MemoryCursors) Save(_ context.Context, name string, c Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[name] = c
	return nil
}

// RedisCursors stores one JSON document per subscription under prefix+name.
type RedisCursors struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRedisCursors(ctx context.Context, addr string) (*RedisCursors, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", addr)
	}

	return &RedisCursors{client: client, prefix: "epcis:subscriptions:", timeout: 5 * time.Second}, nil
}

func (r *RedisCursors) key(name string) string {
	return r.prefix + name
}

func (r *RedisCursors) Load(ctx context.Context, name string) (Cursor, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var c Cursor
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return c, false, nil
	}
	if err != nil {
		return c, false, errors.Wrapf(err, "failed to load cursor %q", name)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, false, errors.Wrapf(err, "failed to decode cursor %q", name)
	}
	return c, true, nil
}

func (r *RedisCursors) Save(ctx context.Context, name string, c Cursor) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrapf(err, "failed to encode cursor %q", name)
	}
	return errors.Wrapf(r.client.Set(ctx, r.key(name), data, 0).Err(), "failed to save cursor %q", name)
}

func (r *RedisCursors) Close() error {
	return r.client.Close()
}
