// Package commands provides the built-in core command plugin.
package commands

import (
	"context"
	"strings"

	"github.com/stonegate/stonegate/internal/command"
)

// Core is the server's own command plugin: introspection commands that
// every console gets regardless of which plugins are loaded.
type Core struct {
	manager *command.Manager
}

// NewCore creates the core plugin over the manager it will describe.
func NewCore(manager *command.Manager) *Core {
	return &Core{manager: manager}
}

// ID implements command.Plugin.
func (c *Core) ID() string { return "core" }

// Name implements command.Plugin.
func (c *Core) Name() string { return "Core" }

// Commands implements command.Provider.
func (c *Core) Commands() []command.Descriptor {
	return []command.Descriptor{
		{
			Name:    []string{"help"},
			Aliases: []string{"commands"},
			Handler: c.help,
		},
		{
			Name:    []string{"plugins"},
			Handler: c.plugins,
		},
		{
			Name:    []string{"echo"},
			Params:  []command.ParamKind{command.ParamTail},
			Handler: c.echo,
		},
	}
}

func (c *Core) help(ctx context.Context, sender command.Sender, args []string) (command.Outcome, error) {
	names := c.manager.Names()
	lines := make([]string, 0, len(names)+1)
	lines = append(lines, "Available commands:")
	for _, name := range names {
		lines = append(lines, "/"+name.String())
	}
	sender.SendMessage(strings.Join(lines, "\n"))
	return command.OutcomeSuccess, nil
}

func (c *Core) plugins(ctx context.Context, sender command.Sender, args []string) (command.Outcome, error) {
	ids := c.manager.PluginIDs()
	sender.SendMessage("Loaded plugins: " + strings.Join(ids, ", "))
	return command.OutcomeSuccess, nil
}

func (c *Core) echo(ctx context.Context, sender command.Sender, args []string) (command.Outcome, error) {
	if len(args) == 0 {
		return command.OutcomeWrongUsage, nil
	}
	sender.SendMessage(strings.Join(args, " "))
	return command.OutcomeSuccess, nil
}
