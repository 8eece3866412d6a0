package telemetry

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stonegate/stonegate/internal/command"
	"github.com/stonegate/stonegate/internal/storage"
)

type captureStore struct {
	records []storage.DispatchRecord
	err     error
}

func (s *captureStore) AppendDispatch(ctx context.Context, record storage.DispatchRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *captureStore) RecentDispatches(ctx context.Context, limit int) ([]storage.DispatchRecord, error) {
	return s.records, nil
}

func TestEmitterNilStoreIsNoop(t *testing.T) {
	emitter := NewEmitter(nil, log.New(io.Discard, "", 0))
	emitter.CommandDispatched(context.Background(), "warp", command.MustName("home"), command.OutcomeSuccess, 0)
}

func TestEmitterRecordsDispatch(t *testing.T) {
	store := &captureStore{}
	emitter := NewEmitter(store, log.New(io.Discard, "", 0))
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	emitter.clock = func() time.Time { return at }

	emitter.CommandDispatched(context.Background(), "warp", command.MustName("home"), command.OutcomeSuccess, 2)

	if len(store.records) != 1 {
		t.Fatalf("expected one record, got %d", len(store.records))
	}
	record := store.records[0]
	if record.PluginID != "warp" || record.Command != "home" || record.Outcome != "success" || record.ArgCount != 2 {
		t.Fatalf("unexpected record %+v", record)
	}
	if !record.Timestamp.Equal(at) {
		t.Fatalf("expected clock timestamp, got %v", record.Timestamp)
	}
}

func TestEmitterLabelsUnresolvedDispatches(t *testing.T) {
	store := &captureStore{}
	emitter := NewEmitter(store, log.New(io.Discard, "", 0))

	emitter.CommandDispatched(context.Background(), "", command.Name{}, command.OutcomeNotHandled, 0)

	if len(store.records) != 1 || store.records[0].Command != "(unresolved)" {
		t.Fatalf("expected unresolved label, got %+v", store.records)
	}
}

func TestEmitterSwallowsStoreErrors(t *testing.T) {
	store := &captureStore{err: errors.New("disk full")}
	emitter := NewEmitter(store, log.New(io.Discard, "", 0))

	emitter.CommandDispatched(context.Background(), "warp", command.MustName("home"), command.OutcomeSuccess, 0)
}
