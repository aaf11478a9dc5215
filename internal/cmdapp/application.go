// Package cmdapp provides the shared application context interface used by
// all CLI commands. Commands accept this interface rather than the concrete
// App type, allowing for easier testing with mock implementations.
package cmdapp

import (
	"github.com/rs/zerolog"

	"github.com/charterops/tripkeeper"
)

// Application defines the application context that commands need.
// The App struct from cmd/tripkeeper/app implements this interface,
// providing dependency injection for commands.
type Application interface {
	// Keeper returns the default reconciliation client, creating it
	// lazily if needed. This is thread-safe and ensures only one
	// instance is created.
	Keeper() (tripkeeper.Keeper, error)

	// KeeperWithOptions creates a new client with custom options layered
	// over the application configuration. Use this when a command needs
	// specific configuration (e.g. dedupe with --dry-run).
	KeeperWithOptions(opts ...tripkeeper.Option) (tripkeeper.Keeper, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (text, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string
}
