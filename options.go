package tripkeeper

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/match"
	"github.com/charterops/tripkeeper/pkg/records"
	"github.com/charterops/tripkeeper/pkg/recovery"
)

// config holds the resolved Keeper configuration.
type config struct {
	store   records.Store
	dbPath  string
	policy  recovery.Policy
	matcher *match.Matcher
	logger  *zerolog.Logger
	dryRun  bool
}

// defaultConfig resolves the defaults a bare New() uses.
func defaultConfig() *config {
	dbPath := DefaultDBPath
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, DefaultDBPath)
	}
	return &config{
		dbPath:  dbPath,
		policy:  recovery.DefaultPolicy(),
		matcher: match.New(),
		logger:  defaultLogger(),
	}
}

// Option is a function that configures a Keeper.
type Option func(*config) error

// WithStore uses the given record store instead of opening the default
// SQLite database. The caller retains ownership; Close becomes a no-op.
func WithStore(store records.Store) Option {
	return func(c *config) error {
		if store == nil {
			return errors.NewValidationError("store", nil, "store must not be nil")
		}
		c.store = store
		return nil
	}
}

// WithDBPath opens the SQLite database at the given path. Ignored when
// WithStore is also given.
func WithDBPath(path string) Option {
	return func(c *config) error {
		if path == "" {
			return errors.NewValidationError("dbPath", path, "database path must not be empty")
		}
		c.dbPath = path
		return nil
	}
}

// WithPolicy sets the recovery policy.
func WithPolicy(policy recovery.Policy) Option {
	return func(c *config) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		c.policy = policy
		return nil
	}
}

// WithMatcher sets the fuzzy matcher.
func WithMatcher(m *match.Matcher) Option {
	return func(c *config) error {
		if m == nil {
			return errors.NewValidationError("matcher", nil, "matcher must not be nil")
		}
		c.matcher = m
		return nil
	}
}

// WithLogger sets the logger used by all passes.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return errors.NewValidationError("logger", nil, "logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithDryRun makes the canonicalization pass plan and report without
// issuing deletions.
func WithDryRun(dryRun bool) Option {
	return func(c *config) error {
		c.dryRun = dryRun
		return nil
	}
}
