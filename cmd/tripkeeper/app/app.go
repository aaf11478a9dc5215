// Package app provides the application context and dependency management
// for the tripkeeper CLI. It centralizes configuration, logging, and the
// reconciliation client behind one struct, following the dependency
// injection pattern.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/charterops/tripkeeper"
	"github.com/charterops/tripkeeper/internal/cmdapp"
	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/recovery"
)

// App represents the tripkeeper application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Keeper instance (lazy-initialized, singleton)
	mu     sync.Mutex
	keeper tripkeeper.Keeper
}

// New creates a new App instance with the given version information.
func New(version, commit, date string) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("app", "loading configuration", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Keeper returns the reconciliation client, creating it lazily if needed.
func (a *App) Keeper() (tripkeeper.Keeper, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.keeper != nil {
		return a.keeper, nil
	}

	keeper, err := a.newKeeper()
	if err != nil {
		return nil, err
	}
	a.keeper = keeper
	return keeper, nil
}

// KeeperWithOptions creates a new client with custom options layered over
// the application configuration. The caller owns the returned client.
func (a *App) KeeperWithOptions(opts ...tripkeeper.Option) (tripkeeper.Keeper, error) {
	base, err := a.baseOptions()
	if err != nil {
		return nil, err
	}
	return tripkeeper.New(append(base, opts...)...)
}

// Shutdown releases the lazily created client, if any.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.keeper == nil {
		return nil
	}
	err := a.keeper.Close()
	a.keeper = nil
	return err
}

// newKeeper builds the client from configuration.
func (a *App) newKeeper() (tripkeeper.Keeper, error) {
	opts, err := a.baseOptions()
	if err != nil {
		return nil, err
	}
	return tripkeeper.New(opts...)
}

// baseOptions translates configuration into client options.
func (a *App) baseOptions() ([]tripkeeper.Option, error) {
	opts := []tripkeeper.Option{
		tripkeeper.WithLogger(a.logger),
	}
	if a.config.DBPath != "" {
		opts = append(opts, tripkeeper.WithDBPath(a.config.DBPath))
	}
	if a.config.PolicyFile != "" {
		policy, err := recovery.LoadPolicy(a.config.PolicyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tripkeeper.WithPolicy(policy))
	}
	return opts, nil
}

// Ensure App implements cmdapp.Application at compile time.
var _ cmdapp.Application = (*App)(nil)
