// Package console parses console command flags and composes the operator
// console process: dispatch registry, plugin loading, audit storage, and
// the websocket transport.
package console

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/stonegate/stonegate/internal/command"
	luaplugin "github.com/stonegate/stonegate/internal/plugins/lua"
	entrypoint "github.com/stonegate/stonegate/internal/platform/cmd"
	server "github.com/stonegate/stonegate/internal/services/console/app"
	"github.com/stonegate/stonegate/internal/services/console/commands"
	"github.com/stonegate/stonegate/internal/storage/sqlite"
	"github.com/stonegate/stonegate/internal/telemetry"
)

// Config holds console command configuration.
type Config struct {
	HTTPAddr    string `env:"STONEGATE_CONSOLE_HTTP_ADDR"    envDefault:":8090"`
	TokenSecret string `env:"STONEGATE_CONSOLE_TOKEN_SECRET"`
	PluginDir   string `env:"STONEGATE_PLUGIN_DIR"`
	AuditDBPath string `env:"STONEGATE_AUDIT_DB"             envDefault:"stonegate.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "console HTTP listen address")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "console token signing secret (empty disables auth)")
	fs.StringVar(&cfg.PluginDir, "plugin-dir", cfg.PluginDir, "directory of lua plugin scripts")
	fs.StringVar(&cfg.AuditDBPath, "audit-db", cfg.AuditDBPath, "dispatch audit database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the console app and serves it until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceConsole, func(context.Context) error {
		store, err := sqlite.Open(ctx, cfg.AuditDBPath)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer store.Close()

		manager := command.NewManager(command.ManagerConfig{
			Observer: telemetry.NewEmitter(store, log.Default()),
		})

		core := commands.NewCore(manager)
		manager.RegisterAll(core, core)

		if cfg.PluginDir != "" {
			for _, plugin := range luaplugin.LoadDir(cfg.PluginDir, log.Default()) {
				manager.RegisterAll(plugin, plugin)
				log.Printf("console: loaded plugin id=%q commands=%d", plugin.ID(), len(plugin.Commands()))
			}
		}

		if err := server.Run(ctx, server.Config{
			HTTPAddr:    cfg.HTTPAddr,
			TokenSecret: cfg.TokenSecret,
		}, manager); err != nil {
			return fmt.Errorf("serve console: %w", err)
		}
		return nil
	})
}
