package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yndnr/chatmesh-go/internal/cli/repl"
	"github.com/yndnr/chatmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/chatmesh-go/internal/infra/confloader"
	"github.com/yndnr/chatmesh-go/internal/infra/shutdown"
	"github.com/yndnr/chatmesh-go/internal/server/adminserver"
	"github.com/yndnr/chatmesh-go/internal/server/chatserver"
	"github.com/yndnr/chatmesh-go/internal/server/config"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
	"github.com/yndnr/chatmesh-go/internal/telemetry/metric"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		noConsole   = flag.Bool("no-console", false, "Do not read commands from stdin")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <id> [<host> <peerId>]...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("chatmesh-server %s\n", buildinfo.String())
		return nil
	}

	cfg, loader, err := loadConfig(*configFile, flag.Args())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.Info("starting chatmesh-server",
		"version", buildinfo.Version,
		"id", cfg.Node.ID,
		"neighbors", len(cfg.Neighbors),
		"config", loader.FilePath())

	shutdownHandler := shutdown.NewHandler(shutdownTimeout)
	shutdownHandler.SetLogger(log)

	registry := metric.NewRegistry()
	srv, err := chatserver.New(context.Background(), cfg,
		chatserver.WithLogger(log),
		chatserver.WithMetrics(registry),
		chatserver.WithQuitHandler(func() { shutdownHandler.Trigger("console quit") }))
	if err != nil {
		return err
	}

	// Hooks run in reverse order of registration.
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping chat server")
		srv.Stop()
		return nil
	})
	go func() {
		if err := srv.Run(context.Background()); err != nil {
			log.Error("chat server stopped", "error", err)
			shutdownHandler.Trigger("server error")
		}
	}()

	if cfg.Admin.Addr != "" {
		admin := adminserver.New(adminserver.Config{
			Addr:        cfg.Admin.Addr,
			Status:      func() any { return srv.Snapshot() },
			Metrics:     registry.Handler(),
			Logger:      log,
			TLSCertFile: cfg.Admin.TLSCertFile,
			TLSKeyFile:  cfg.Admin.TLSKeyFile,
		})
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("stopping admin server")
			return admin.Shutdown(ctx)
		})
		go func() {
			if err := admin.ListenAndServe(); err != nil {
				log.Error("admin server error", "error", err)
			}
		}()
	}

	if loader.FilePath() != "" {
		watcher, err := watchLogLevel(loader, cfg.Node.ID, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(ctx context.Context) error {
				return watcher.Stop()
			})
		}
	}

	if !*noConsole {
		go runConsole(srv, log)
	}

	log.Info("server started",
		"client_addr", srv.ClientAddr().String(),
		"server_addr", srv.ServerAddr().String())
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// loadConfig resolves the configuration from defaults, the config file,
// CHATMESH_* variables and the positional arguments, in increasing order of
// precedence. The node id is resolved first since the default ports depend
// on it.
func loadConfig(configFile string, args []string) (*config.ServerConfig, *confloader.Loader, error) {
	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if len(args) > 0 {
		id, neighbors, err := config.ParseArgs(args)
		if err != nil {
			return nil, nil, err
		}
		overrides := map[string]any{"node.id": id}
		if len(neighbors) > 0 {
			list := make([]any, len(neighbors))
			for i, n := range neighbors {
				list[i] = map[string]any{"host": n.Host, "id": n.ID}
			}
			overrides["neighbors"] = list
		}
		opts = append(opts, confloader.WithOverrides(overrides))
	} else if configFile == "" {
		return nil, nil, fmt.Errorf("either a server id or --config is required")
	}

	var peek struct {
		Node config.NodeSection `koanf:"node"`
	}
	if err := confloader.NewLoader(opts...).Load(&peek); err != nil {
		return nil, nil, err
	}

	cfg := config.Default(peek.Node.ID)
	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Components: cfg.Log.Components,
		Format:     cfg.Log.Format,
		Output:     os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log.With("server", cfg.Node.ID), nil
}

// watchLogLevel re-reads the config file on change and applies its log
// level. Other settings need a restart.
func watchLogLevel(loader *confloader.Loader, id int32, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(loader.FilePath()); err != nil {
		_ = watcher.Stop()
		return nil, err
	}
	watcher.OnChange(func(path string) {
		fresh := config.Default(id)
		if err := loader.Reload(fresh); err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if err := logger.SetLevel(fresh.Log.Level); err != nil {
			log.Warn("log level not reloaded", "path", path, "error", err)
			return
		}
		for _, name := range []string{
			logger.ComponentGeneral,
			logger.ComponentCommunication,
			logger.ComponentChat,
			logger.ComponentElection,
		} {
			if err := logger.SetComponentLevel(name, fresh.Log.Components[name]); err != nil {
				log.Warn("component log level not reloaded", "component", name, "error", err)
			}
		}
		log.Info("log levels reloaded", "level", logger.GetLevel(), "components", logger.ComponentLevels())
	})
	watcher.StartAsync()
	return watcher, nil
}

// runConsole feeds stdin lines to the server until end of input. Closing
// stdin leaves the server running.
func runConsole(srv *chatserver.Server, log logger.Logger) {
	console := repl.New(srv.SubmitLine)
	if err := console.Run(context.Background()); err != nil {
		log.Warn("console stopped", "error", err)
	}
}
