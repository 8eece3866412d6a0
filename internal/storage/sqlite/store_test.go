package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stonegate/stonegate/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestAppendAndRecentDispatches(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, outcome := range []string{"success", "not_handled", "error"} {
		err := store.AppendDispatch(ctx, storage.DispatchRecord{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			PluginID:  "warp",
			Command:   "home",
			Outcome:   outcome,
			ArgCount:  i,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records, err := store.RecentDispatches(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Outcome != "error" || records[1].Outcome != "not_handled" {
		t.Fatalf("expected newest first, got %v", records)
	}
	if !records[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("expected timestamp round-trip, got %v", records[0].Timestamp)
	}
}

func TestAppendDispatchDefaultsTimestamp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendDispatch(ctx, storage.DispatchRecord{Command: "home", Outcome: "success"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	records, err := store.RecentDispatches(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 || records[0].Timestamp.IsZero() {
		t.Fatalf("expected defaulted timestamp, got %v", records)
	}
}

func TestAppendDispatchRequiresCommand(t *testing.T) {
	store := openTestStore(t)
	if err := store.AppendDispatch(context.Background(), storage.DispatchRecord{Outcome: "success"}); err == nil {
		t.Fatal("expected error for missing command")
	}
}
