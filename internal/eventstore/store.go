// Package eventstore keeps a durable log of what each gallery build did.
package eventstore

import (
	"context"
	"time"
)

// Store is an append-only build log.
type Store interface {
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error

	// GetByRunID returns the events of one run in the order they were appended.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// GetRange returns the events recorded in [start, end].
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Prune drops every event of runs that started before cutoff and
	// reports how many events were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
