// Package eventstore keeps the build history as an append-only event log
// in SQLite, with an in-memory projection for recent builds.
package eventstore

import (
	"context"
	"time"
)

// Store persists build events.
type Store interface {
	// Append writes events atomically in order.
	Append(ctx context.Context, events ...Event) error

	// ByBuild returns the events of one build in append order.
	ByBuild(ctx context.Context, buildID string) ([]Event, error)

	// Between returns events that occurred in [from, to] in append order.
	// A zero from means the beginning of the log.
	Between(ctx context.Context, from, to time.Time) ([]Event, error)

	// Prune drops the events of all but the keep most recently recorded
	// builds and returns the number of events removed.
	Prune(ctx context.Context, keep int) (int64, error)

	Close() error
}
