package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

const (
	permissionDeniedText = "You do not have permission to use this command."
	invalidCommandText   = "Unknown command. Try /help for the list of commands."
	commandErrorText     = "Something went wrong while running the command. Please tell a server operator."
	// Reserved for future text; senders currently get an empty message.
	unsupportedSenderText = ""
)

// ErrEmptyArgument indicates an explicit dispatch carried a blank argument
// token. This is a caller contract violation, not a dispatch outcome.
var ErrEmptyArgument = errors.New("explicit dispatch argument must not be empty")

// Observer is notified after every dispatch attempt, including resolution
// misses. Implementations must be cheap and must not block dispatch.
type Observer interface {
	CommandDispatched(ctx context.Context, pluginID string, name Name, outcome Outcome, argCount int)
}

// ManagerConfig carries the collaborators a Manager dispatches through.
type ManagerConfig struct {
	// Logger receives registration and dispatch diagnostics. Defaults to
	// the process logger.
	Logger *log.Logger
	// Observer, when set, receives one record per dispatch attempt.
	Observer Observer
}

// Manager owns the name registry and the dispatch loop. Registrations are
// rare (plugin load/unload); dispatches are frequent and may be concurrent,
// so the table is guarded by a read/write mutex and handler invocation
// always happens outside the lock.
type Manager struct {
	mu       sync.RWMutex
	commands map[Name]registeredCommand

	logger   *log.Logger
	observer Observer
}

// NewManager creates an empty registry. Each Manager owns independent
// state; tests and embedded dispatchers never share a table.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		commands: make(map[Name]registeredCommand),
		logger:   logger,
		observer: cfg.Observer,
	}
}

// RegisterAll registers every valid descriptor the provider declares.
// Invalid descriptors are skipped with a warning; conflicts are resolved
// per the precedence rules and never fail the call.
func (m *Manager) RegisterAll(plugin Plugin, provider Provider) {
	for _, desc := range provider.Commands() {
		m.Register(plugin, desc)
	}
}

// RegisterNamed registers only the provider descriptors whose declared
// name tokens exactly match name.
func (m *Manager) RegisterNamed(plugin Plugin, provider Provider, name ...string) {
	for _, desc := range provider.Commands() {
		if !equalTokens(desc.Name, name) {
			continue
		}
		m.Register(plugin, desc)
		return
	}
	m.logger.Printf("command: no descriptor matches requested name plugin=%q name=%q", plugin.ID(), strings.Join(name, " "))
}

// Register validates one descriptor and installs it under its three name
// classes: plugin-prefixed (always, overriding), bare, and each alias.
func (m *Manager) Register(plugin Plugin, desc Descriptor) {
	name, err := desc.validate()
	if err != nil {
		m.logger.Printf("command: skipping invalid descriptor plugin=%q name=%q: %v", plugin.ID(), strings.Join(desc.Name, " "), err)
		return
	}

	record := registeredCommand{
		plugin:  plugin,
		handler: desc.Handler,
		usage:   desc.usageHint(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefixed, err := name.Prefixed(plugin.ID())
	if err != nil {
		m.logger.Printf("command: skipping descriptor, plugin id is not a valid name token plugin=%q: %v", plugin.ID(), err)
		return
	}
	m.put(prefixed, record, true, false)
	m.put(name, record, false, false)

	for _, leaf := range desc.Aliases {
		alias, err := name.Alias(leaf)
		if err != nil {
			m.logger.Printf("command: skipping invalid alias plugin=%q name=%q alias=%q: %v", plugin.ID(), name, leaf, err)
			continue
		}
		aliasRecord := record
		aliasRecord.isAlias = true
		m.put(alias, aliasRecord, false, true)
	}
}

// put applies the conflict-resolution policy for one derived name. The
// caller holds the write lock.
func (m *Manager) put(name Name, record registeredCommand, prefixed, isAlias bool) {
	existing, occupied := m.commands[name]
	if occupied {
		switch {
		case prefixed:
			// A plugin always wins its own namespace.
			m.logger.Printf("command: overriding plugin-prefixed command name=%q plugin=%q", name, record.plugin.ID())
		case isAlias || !existing.isAlias:
			// Aliases never evict anything; primaries never evict primaries.
			m.logger.Printf("command: name already registered, skipping name=%q plugin=%q owner=%q", name, record.plugin.ID(), existing.plugin.ID())
			return
		default:
			// A primary registration reclaims a name squatted by an alias.
			m.logger.Printf("command: replacing aliased command with primary name=%q plugin=%q", name, record.plugin.ID())
		}
	}
	m.commands[name] = record
}

// Remove unregisters a single name. It reports whether an entry existed.
func (m *Manager) Remove(name Name) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commands[name]; !ok {
		return false
	}
	delete(m.commands, name)
	return true
}

// RemovePlugin unregisters every name owned by the plugin and returns the
// number of entries removed. Used on plugin unload.
func (m *Manager) RemovePlugin(pluginID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for name, record := range m.commands {
		if record.plugin.ID() == pluginID {
			delete(m.commands, name)
			removed++
		}
	}
	return removed
}

// Names returns a sorted snapshot of every registered name.
func (m *Manager) Names() []Name {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]Name, 0, len(m.commands))
	for name := range m.commands {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })
	return names
}

// PluginIDs returns the sorted set of plugin ids with live registrations.
func (m *Manager) PluginIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, record := range m.commands {
		seen[record.plugin.ID()] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Owner returns the id of the plugin owning a name, when registered.
func (m *Manager) Owner(name Name) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.commands[name]
	if !ok {
		return "", false
	}
	return record.plugin.ID(), true
}

// ExecuteLine splits a raw line on runs of whitespace and dispatches the
// resulting tokens. Quoting and escaping belong to layers above this one.
func (m *Manager) ExecuteLine(ctx context.Context, sender Sender, line string) Outcome {
	return m.Execute(ctx, sender, strings.Fields(line)...)
}

// Execute resolves a token sequence against the registry, longest name
// first. On a miss the candidate shrinks to its parent and the lookup
// retries; tokens not consumed by the matched name become the handler's
// arguments. When no ancestor at any depth is registered the sender is
// told the command is unknown and OutcomeNotHandled is returned without
// invoking anything.
func (m *Manager) Execute(ctx context.Context, sender Sender, tokens ...string) Outcome {
	name, err := NewName(tokens...)
	if err != nil {
		sender.SendMessage(invalidCommandText)
		m.observe(ctx, "", Name{}, OutcomeNotHandled, 0)
		return OutcomeNotHandled
	}

	m.mu.RLock()
	for {
		record, ok := m.commands[name]
		if ok {
			m.mu.RUnlock()
			args := tokens[name.Size():]
			return m.dispatch(ctx, sender, name, record, args)
		}
		parent, ok := name.Parent()
		if !ok {
			break
		}
		name = parent
	}
	m.mu.RUnlock()

	sender.SendMessage(invalidCommandText)
	m.observe(ctx, "", name, OutcomeNotHandled, 0)
	return OutcomeNotHandled
}

// ExecuteName dispatches an exact name with pre-split arguments. There is
// no parent fallback. Blank argument tokens are a caller contract
// violation and fail fast with ErrEmptyArgument; the error return is nil
// on every other path, including lookup misses and handler failures.
func (m *Manager) ExecuteName(ctx context.Context, sender Sender, name Name, args ...string) (Outcome, error) {
	for i, arg := range args {
		if arg == "" {
			return OutcomeUnspecified, fmt.Errorf("%w: index %d", ErrEmptyArgument, i)
		}
	}

	m.mu.RLock()
	record, ok := m.commands[name]
	m.mu.RUnlock()
	if !ok {
		sender.SendMessage(invalidCommandText)
		m.observe(ctx, "", name, OutcomeNotHandled, len(args))
		return OutcomeNotHandled, nil
	}

	return m.dispatch(ctx, sender, name, record, args), nil
}

// dispatch invokes the matched handler and translates its result into a
// sender-visible message. Exactly one message (or none, for success)
// reaches the sender per invocation; no failure escapes to the caller.
func (m *Manager) dispatch(ctx context.Context, sender Sender, name Name, record registeredCommand, args []string) Outcome {
	m.logger.Printf("command: dispatching name=%q plugin=%q args=%d", name, record.plugin.ID(), len(args))

	outcome := m.invoke(ctx, sender, name, record, args)
	if outcome == OutcomeUnspecified {
		outcome = OutcomeFailureOther
	}

	switch outcome {
	case OutcomeSuccess:
		// No message owed.
	case OutcomeNoPermission:
		sender.SendMessage(permissionDeniedText)
	case OutcomeWrongUsage:
		sender.SendMessage("/" + name.String() + " " + record.usage)
	case OutcomeUnsupportedSender:
		sender.SendMessage(unsupportedSenderText)
	case OutcomeError:
		sender.SendMessage(commandErrorText)
	case OutcomeNotHandled:
		// Handlers must not claim "not handled" after being dispatched to.
		outcome = OutcomeFailureOther
		sender.SendMessage(commandErrorText)
	default:
		outcome = OutcomeFailureOther
		sender.SendMessage(commandErrorText)
	}

	m.observe(ctx, record.plugin.ID(), name, outcome, len(args))
	return outcome
}

// invoke runs the handler, converting returned errors and panics into
// OutcomeError so that handler failures never propagate past dispatch.
func (m *Manager) invoke(ctx context.Context, sender Sender, name Name, record registeredCommand, args []string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Printf("command: handler panic name=%q plugin=%q: %v", name, record.plugin.ID(), r)
			outcome = OutcomeError
		}
	}()

	outcome, err := record.handler(ctx, sender, args)
	if err != nil {
		m.logger.Printf("command: handler failed name=%q plugin=%q: %v", name, record.plugin.ID(), err)
		return OutcomeError
	}
	return outcome
}

func (m *Manager) observe(ctx context.Context, pluginID string, name Name, outcome Outcome, argCount int) {
	if m.observer == nil {
		return
	}
	m.observer.CommandDispatched(ctx, pluginID, name, outcome, argCount)
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(strings.TrimSpace(a[i]), strings.TrimSpace(b[i])) {
			return false
		}
	}
	return true
}
