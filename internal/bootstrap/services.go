// Package bootstrap wires the services shared by depsmith commands.
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chis/depsmith/internal/config"
	"github.com/chis/depsmith/internal/events"
	"github.com/chis/depsmith/internal/logging"
	"github.com/chis/depsmith/internal/storage"
)

// ServiceDependencies holds all initialized service dependencies for CLI commands.
type ServiceDependencies struct {
	Logger   *logging.Logger
	Storage  storage.Storage // nil when history is disabled or unavailable
	EventBus *events.Bus
}

// InitOptions configures service initialization behavior.
type InitOptions struct {
	// LogOutput receives log lines; stderr when nil.
	LogOutput io.Writer
	// DisableStorage skips the history database entirely.
	DisableStorage bool
	// RequireStorage determines if storage initialization failure should be fatal
	RequireStorage bool
}

// NewLogger builds a logger from the configured level and format and makes
// it the package default.
func NewLogger(cfg config.Config, out io.Writer) (*logging.Logger, error) {
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if out == nil {
		out = os.Stderr
	}

	logger := logging.New(
		logging.WithOutput(out),
		logging.WithLevel(level),
		logging.WithJSON(strings.EqualFold(cfg.LogFormat, "json")),
	)
	logging.SetDefault(logger)
	return logger, nil
}

// OpenStorage opens the history database at path, creating its directory.
func OpenStorage(path string) (storage.Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("no database path configured")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return storage.NewSQLiteStorage(path)
}

// InitializeServices initializes all service dependencies with consistent error handling.
// Returns ServiceDependencies and a cleanup function that should be deferred.
func InitializeServices(cfg config.Config, opts InitOptions) (*ServiceDependencies, func(), error) {
	deps := &ServiceDependencies{}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	logger, err := NewLogger(cfg, opts.LogOutput)
	if err != nil {
		return nil, nil, err
	}
	deps.Logger = logger

	// Storage is optional: a run without history still resolves.
	if !opts.DisableStorage {
		logger.Debug("Initializing storage at %s...", cfg.DBPath)
		store, err := OpenStorage(cfg.DBPath)
		switch {
		case err == nil:
			deps.Storage = store
			cleanups = append(cleanups, func() {
				if err := store.Close(); err != nil {
					logger.Warn("Failed to close storage: %v", err)
				}
			})
		case opts.RequireStorage:
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
		default:
			logger.Warn("Failed to initialize storage (continuing without history): %v", err)
		}
	}

	deps.EventBus = events.NewBus()

	return deps, cleanup, nil
}
