// Package lua loads command plugins written as Lua scripts.
//
// A script declares its identity and commands at load time:
//
//	plugin{ id = "greet", name = "Greeter" }
//
//	register{
//	    name = "greet",
//	    aliases = { "hi" },
//	    usage = "<who>",
//	    handler = function(sender, args)
//	        sender.send("Hello, " .. (args[1] or "stranger"))
//	        return "success"
//	    end,
//	}
//
// The loaded plugin satisfies both command.Plugin and command.Provider,
// so it registers like any in-process plugin. Each script owns one Lua
// state; handler calls are serialized because lua.State is not safe for
// concurrent use.
package lua

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	golua "github.com/Shopify/go-lua"

	"github.com/stonegate/stonegate/internal/command"
)

const handlersGlobal = "__command_handlers"

// Plugin is a command plugin backed by one Lua script.
type Plugin struct {
	id   string
	name string

	mu          sync.Mutex
	state       *golua.State
	descriptors []command.Descriptor
	handlers    int
}

// Load runs a script and collects the commands it registers.
func Load(path string) (*Plugin, error) {
	defaultID := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	plugin := &Plugin{id: defaultID, name: defaultID}

	state := golua.NewState()
	golua.OpenLibraries(state)
	plugin.state = state

	state.NewTable()
	state.SetGlobal(handlersGlobal)

	state.PushGoFunction(plugin.declare)
	state.SetGlobal("plugin")
	state.PushGoFunction(plugin.register)
	state.SetGlobal("register")

	if err := golua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua script %s: %w", path, err)
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run lua script %s: %w", path, err)
	}
	if len(plugin.descriptors) == 0 {
		return nil, fmt.Errorf("lua script %s registers no commands", path)
	}
	return plugin, nil
}

// LoadDir loads every *.lua script in dir. Scripts that fail to load are
// logged and skipped so one broken plugin cannot take down the rest.
func LoadDir(dir string, logger *log.Logger) []*Plugin {
	if logger == nil {
		logger = log.Default()
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		logger.Printf("lua: scan plugin dir %q: %v", dir, err)
		return nil
	}
	var plugins []*Plugin
	for _, path := range paths {
		plugin, err := Load(path)
		if err != nil {
			logger.Printf("lua: skipping plugin script: %v", err)
			continue
		}
		plugins = append(plugins, plugin)
	}
	return plugins
}

// ID implements command.Plugin.
func (p *Plugin) ID() string { return p.id }

// Name implements command.Plugin.
func (p *Plugin) Name() string { return p.name }

// Commands implements command.Provider.
func (p *Plugin) Commands() []command.Descriptor {
	return append([]command.Descriptor(nil), p.descriptors...)
}

// declare is the Lua-side plugin{} builtin.
func (p *Plugin) declare(l *golua.State) int {
	golua.CheckType(l, 1, golua.TypeTable)
	if id, ok := tableString(l, 1, "id"); ok {
		p.id = strings.ToLower(id)
	}
	if name, ok := tableString(l, 1, "name"); ok {
		p.name = name
	}
	return 0
}

// register is the Lua-side register{} builtin.
func (p *Plugin) register(l *golua.State) int {
	golua.CheckType(l, 1, golua.TypeTable)

	nameField, ok := tableString(l, 1, "name")
	if !ok {
		golua.Errorf(l, "register requires a name")
	}
	l.Field(1, "handler")
	if l.TypeOf(-1) != golua.TypeFunction {
		golua.Errorf(l, "register requires a handler function")
	}

	// Park the handler function in the handlers table; descriptors only
	// carry its index.
	p.handlers++
	index := p.handlers
	l.Global(handlersGlobal)
	l.PushValue(-2)
	l.RawSetInt(-2, index)
	l.Pop(2)

	usage, _ := tableString(l, 1, "usage")
	descriptor := command.Descriptor{
		Name:    strings.Fields(nameField),
		Aliases: tableStrings(l, 1, "aliases"),
		Usage:   usage,
		Params:  parseParams(l, tableStrings(l, 1, "params")),
		Handler: p.handler(index),
	}
	p.descriptors = append(p.descriptors, descriptor)
	return 0
}

// handler bridges one registered Lua function into a command.Handler.
func (p *Plugin) handler(index int) command.Handler {
	return func(ctx context.Context, sender command.Sender, args []string) (command.Outcome, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		l := p.state
		top := l.Top()
		defer l.SetTop(top)

		l.Global(handlersGlobal)
		l.RawGetInt(-1, index)
		l.Remove(-2)

		pushSender(l, sender)
		pushArgs(l, args)

		if err := l.ProtectedCall(2, 1, 0); err != nil {
			return command.OutcomeUnspecified, fmt.Errorf("lua handler: %w", err)
		}
		result, hasResult := l.ToString(-1)
		l.Pop(1)
		if !hasResult {
			return command.OutcomeUnspecified, nil
		}
		return parseOutcome(result)
	}
}

func pushSender(l *golua.State, sender command.Sender) {
	l.NewTable()
	l.PushGoFunction(func(l *golua.State) int {
		text := golua.CheckString(l, 1)
		sender.SendMessage(text)
		return 0
	})
	l.SetField(-2, "send")
}

func pushArgs(l *golua.State, args []string) {
	l.NewTable()
	for i, arg := range args {
		l.PushString(arg)
		l.RawSetInt(-2, i+1)
	}
}

func parseParams(l *golua.State, kinds []string) []command.ParamKind {
	params := make([]command.ParamKind, 0, len(kinds))
	for _, kind := range kinds {
		switch strings.ToLower(kind) {
		case "string":
			params = append(params, command.ParamString)
		case "tail":
			params = append(params, command.ParamTail)
		default:
			golua.Errorf(l, "register: unknown param kind %q", kind)
		}
	}
	return params
}

func parseOutcome(result string) (command.Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "success":
		return command.OutcomeSuccess, nil
	case "no_permission":
		return command.OutcomeNoPermission, nil
	case "wrong_usage":
		return command.OutcomeWrongUsage, nil
	case "unsupported_sender":
		return command.OutcomeUnsupportedSender, nil
	case "error":
		return command.OutcomeError, nil
	default:
		return command.OutcomeUnspecified, fmt.Errorf("lua handler returned unknown outcome %q", result)
	}
}

func tableString(l *golua.State, index int, field string) (string, bool) {
	l.Field(index, field)
	defer l.Pop(1)
	if l.TypeOf(-1) != golua.TypeString {
		return "", false
	}
	value, ok := l.ToString(-1)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func tableStrings(l *golua.State, index int, field string) []string {
	l.Field(index, field)
	defer l.Pop(1)
	if l.TypeOf(-1) != golua.TypeTable {
		return nil
	}
	length := l.RawLength(-1)
	values := make([]string, 0, length)
	for i := 1; i <= length; i++ {
		l.RawGetInt(-1, i)
		if value, ok := l.ToString(-1); ok && strings.TrimSpace(value) != "" {
			values = append(values, strings.TrimSpace(value))
		}
		l.Pop(1)
	}
	return values
}
