package main

import (
	"context"
	"testing"

	"github.com/PratikDhanave/epcis-query-service/internal/config"
	"github.com/PratikDhanave/epcis-query-service/internal/subscription"
)

type closingCursors struct {
	*subscription.MemoryCursors
	closed int
}

func (c *closingCursors) Close() error {
	c.closed++
	return nil
}

func TestCloseCursors(t *testing.T) {
	c := &closingCursors{MemoryCursors: subscription.NewMemoryCursors()}
	closeCursors(c)
	if c.closed != 1 {
		t.Fatalf("expected one close got %d", c.closed)
	}

	// Stores without a connection are left alone.
	closeCursors(subscription.NewMemoryCursors())
}

func TestOpenCursors_MemoryWithoutRedis(t *testing.T) {
	cursors, err := openCursors(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("open cursors: %v", err)
	}
	if _, ok := cursors.(*subscription.MemoryCursors); !ok {
		t.Fatalf("expected memory cursors got %T", cursors)
	}
}
