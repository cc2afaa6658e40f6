package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chatmesh-go/internal/cli/config"
	"github.com/yndnr/chatmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

const metadataConfig = "config"

// App creates the CLI application. Without a subcommand it runs connect.
func App() *cli.App {
	return &cli.App{
		Name:    "chatmesh-client",
		Usage:   "chat through a mesh of chatmesh servers",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ConnectCommand(),
			StatusCommand(),
		},
		Before: loadConfig,
		Action: connectAction,
	}
}

// globalFlags returns the global CLI flags. Unset flags fall back to
// CHATMESH_* variables and then to the config file.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "client config file",
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    config.KeyServer,
			Aliases: []string{"s"},
			Usage:   "server client address (e.g. localhost:2050)",
		},
		&cli.StringFlag{
			Name:    config.KeyAdmin,
			Aliases: []string{"a"},
			Usage:   "server admin URL (e.g. http://localhost:9090)",
		},
		&cli.StringFlag{
			Name:  config.KeyAdminCA,
			Usage: "PEM file of extra CAs trusted for an https admin URL",
		},
		&cli.StringFlag{
			Name:    config.KeyOutput,
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show wide output (more fields)",
		},
		&cli.StringFlag{
			Name:  config.KeyLogLevel,
			Usage: "log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  config.KeyLogFormat,
			Usage: "log format: text, json",
		},
		&cli.StringFlag{
			Name:  config.KeyHistory,
			Usage: "console history file",
		},
	}
}

// loadConfig resolves the client configuration once per invocation.
func loadConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	flags := make(map[string]string)
	for _, key := range config.Keys {
		if c.IsSet(key) {
			flags[key] = c.String(key)
		}
	}
	c.App.Metadata[metadataConfig] = config.Merge(cfg, config.Environ(), flags)
	return nil
}

// GetConfig returns the resolved configuration, or the defaults when the
// Before hook did not run.
func GetConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metadataConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

func newLogger(cfg *config.CLIConfig, w io.Writer) (logger.Logger, error) {
	l, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: w,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return l, nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
