package contracts

import (
	"context"
	"time"
)

// SnapshotStore is the durable, append-only store of daily observations.
// Writes for different items never block each other, and each Put is
// all-or-nothing.
type SnapshotStore interface {
	// Put stores obs. today is the as-of day of the writing run: obs.Date
	// after today fails with ErrFutureDate, obs.Date == today is an upsert,
	// and an earlier date that already holds different content fails with
	// *DuplicateWriteError. Identical content is a no-op.
	Put(ctx context.Context, obs *Observation, today time.Time) error

	// Get returns the observation for (itemID, date), or nil when absent.
	Get(ctx context.Context, itemID string, date time.Time) (*Observation, error)

	// Range returns the observations in [from, to], ascending, gaps skipped.
	Range(ctx context.Context, itemID string, from, to time.Time) ([]*Observation, error)

	// Items lists every item id with at least one observation, sorted.
	Items(ctx context.Context) ([]string, error)
}

// Acquirer produces today's observation for one item. A nil observation
// means no data; the pipeline treats an error the same way.
type Acquirer interface {
	Acquire(ctx context.Context, item Item, asOf time.Time) (*Observation, error)
}
