// Package telemetry records dispatch activity for operator auditing.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/stonegate/stonegate/internal/command"
	"github.com/stonegate/stonegate/internal/storage"
)

// Emitter forwards dispatch observations to a DispatchStore. It is the
// command.Observer wired into the Manager; store failures are logged and
// never affect dispatch.
type Emitter struct {
	store  storage.DispatchStore
	logger *log.Logger
	clock  func() time.Time
}

// NewEmitter creates an emitter over store. A nil store yields a no-op
// emitter, which keeps wiring unconditional at startup.
func NewEmitter(store storage.DispatchStore, logger *log.Logger) *Emitter {
	if logger == nil {
		logger = log.Default()
	}
	return &Emitter{store: store, logger: logger, clock: time.Now}
}

// CommandDispatched implements command.Observer.
func (e *Emitter) CommandDispatched(ctx context.Context, pluginID string, name command.Name, outcome command.Outcome, argCount int) {
	if e == nil || e.store == nil {
		return
	}
	commandName := name.String()
	if commandName == "" {
		commandName = "(unresolved)"
	}
	record := storage.DispatchRecord{
		Timestamp: e.clock().UTC(),
		PluginID:  pluginID,
		Command:   commandName,
		Outcome:   outcome.String(),
		ArgCount:  argCount,
	}
	if err := e.store.AppendDispatch(ctx, record); err != nil {
		e.logger.Printf("telemetry: append dispatch record command=%q: %v", commandName, err)
	}
}
