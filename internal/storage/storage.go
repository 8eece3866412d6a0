// Package storage defines the persistence interfaces for Stonegate.
//
// The command registry itself is never persisted; only dispatch activity
// is recorded, for operator auditing. Implementations (e.g. SQLite) live
// in subpackages.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// DispatchRecord captures one dispatch attempt, including resolution
// misses (empty PluginID, not_handled outcome).
type DispatchRecord struct {
	Timestamp time.Time
	PluginID  string
	Command   string
	Outcome   string
	ArgCount  int
}

// DispatchStore persists dispatch audit records.
type DispatchStore interface {
	AppendDispatch(ctx context.Context, record DispatchRecord) error
	RecentDispatches(ctx context.Context, limit int) ([]DispatchRecord, error)
}
