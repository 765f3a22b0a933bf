// Package main is the entry point for the gateway configuration service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avtreegw/internal/lifecycle"
	"github.com/vyrodovalexey/avtreegw/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	environment string
	logLevel    string
	logFormat   string
	watch       bool
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	ctrl := initController(flags, logger)
	run(ctrl, flags, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", lifecycle.DefaultConfigPath),
		"Path to the base configuration file, with or without extension")
	environment := flag.String("env", getEnvOrDefault("GATEWAY_ENVIRONMENT", ""),
		"Deployment environment name for the <config>-<env> overlay file")
	logLevel := flag.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	watch := flag.Bool("watch", false, "Reload when the configuration file changes")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		environment: *environment,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		watch:       *watch,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("avtreegw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// initController creates the lifecycle controller and performs the
// initial load.
func initController(flags cliFlags, logger observability.Logger) *lifecycle.Controller {
	logger.Info("starting avtreegw",
		observability.String("version", version),
		observability.String("config", flags.configPath),
		observability.String("environment", flags.environment),
	)

	ctrl := lifecycle.New(flags.configPath,
		lifecycle.WithLogger(logger),
		lifecycle.WithEnvironment(flags.environment),
	)

	loadFailed := false
	ctrl.OnError(func(err error) {
		loadFailed = true
		logger.Error("failed to load configuration", observability.Error(err))
	})

	ctrl.Load(context.Background())
	if loadFailed {
		os.Exit(1)
	}

	cfg := ctrl.Config()
	logger.Info("configuration loaded",
		observability.String("path", ctrl.ResolvedPath()),
		observability.String("rootPath", cfg.RootPath),
		observability.Int("filters", len(cfg.Gateway.Filter)),
	)
	return ctrl
}

// run watches the configuration if requested and waits for shutdown.
func run(ctrl *lifecycle.Controller, flags cliFlags, logger observability.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watcher *lifecycle.Watcher
	if flags.watch {
		watcher = startWatcher(ctx, ctrl, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigCh
		if sig == syscall.SIGHUP {
			logger.Info("received SIGHUP, reloading configuration")
			if err := ctrl.Reload(ctx); err != nil {
				logger.Error("reload failed", observability.Error(err))
			}
			continue
		}

		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
		break
	}

	if watcher != nil {
		_ = watcher.Stop()
	}
	logger.Info("gateway configuration service stopped")
}

// startWatcher starts the configuration file watcher.
func startWatcher(ctx context.Context, ctrl *lifecycle.Controller, logger observability.Logger) *lifecycle.Watcher {
	watcher, err := lifecycle.NewWatcher(ctrl, lifecycle.WithWatcherLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}
	return watcher
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
