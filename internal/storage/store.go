// Package storage persists whole ledger snapshots. Every mutation saves
// the full snapshot, so implementations replace prior state rather than
// appending to it.
package storage

import (
	"context"

	"tally/internal/core"
)

type Store interface {
	// Save persists the snapshot, replacing any prior state.
	Save(ctx context.Context, snap core.Snapshot) error

	// Load restores the last persisted snapshot. An absent store yields
	// an empty snapshot with a nil error; load never aborts the process.
	Load(ctx context.Context) (core.Snapshot, error)

	Close() error
}
