// Package tripkeeper reconciles charter-marketplace records held in a local
// datastore: it collapses duplicate records sharing a natural key into a
// single canonical record, fuzzy-matches inbound marketplace entities to
// local records when no stable foreign key exists, and detects and recovers
// corrupted text fields.
//
// The three engines are pure and independently usable from pkg/dedupe,
// pkg/match and pkg/recovery; this package wires them to a record store
// behind one client for hosts that want the whole pipeline.
package tripkeeper

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/charterops/tripkeeper/internal/records/sqlite"
	"github.com/charterops/tripkeeper/pkg/dedupe"
	"github.com/charterops/tripkeeper/pkg/logging"
	"github.com/charterops/tripkeeper/pkg/match"
	"github.com/charterops/tripkeeper/pkg/records"
	"github.com/charterops/tripkeeper/pkg/recovery"
)

// DefaultDBPath is the default database location, relative to the user's
// home directory.
const DefaultDBPath = ".tripkeeper/records.db"

// Keeper is the reconciliation client over a record store.
type Keeper interface {
	// Store returns the underlying record store.
	Store() records.Store

	// Dedupe runs a canonicalization pass over the given natural keys.
	// With no keys it processes every distinct natural key in the store.
	Dedupe(ctx context.Context, keys ...string) (*dedupe.Summary, error)

	// Recover runs a corruption recovery pass over records matching the
	// filter. The pass diagnoses only unless recovery.WithFix is given.
	Recover(ctx context.Context, filter records.Filter, opts ...recovery.RunnerOption) (*recovery.Summary, error)

	// Match finds the local record best matching an inbound display name,
	// or an explicit unmatched result.
	Match(ctx context.Context, displayName string, filter records.Filter) (match.Result, error)

	// Close releases the underlying store.
	Close() error
}

// keeper is the internal implementation of the Keeper interface.
type keeper struct {
	config  *config
	store   records.Store
	engine  *recovery.Engine
	matcher *match.Matcher
	logger  *zerolog.Logger
	closer  func() error
}

// New creates a Keeper. Without WithStore it opens the default SQLite
// database under the user's home directory.
func New(opts ...Option) (Keeper, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	k := &keeper{
		config:  cfg,
		store:   cfg.store,
		matcher: cfg.matcher,
		logger:  cfg.logger,
		closer:  func() error { return nil },
	}

	if k.store == nil {
		dbStore, err := sqlite.Open(cfg.dbPath)
		if err != nil {
			return nil, err
		}
		k.store = dbStore
		k.closer = dbStore.Close
	}

	engine, err := recovery.NewEngine(cfg.policy)
	if err != nil {
		return nil, err
	}
	k.engine = engine

	return k, nil
}

// Store returns the underlying record store.
func (k *keeper) Store() records.Store {
	return k.store
}

// Dedupe runs a canonicalization pass.
func (k *keeper) Dedupe(ctx context.Context, keys ...string) (*dedupe.Summary, error) {
	if len(keys) == 0 {
		var err error
		keys, err = k.naturalKeys(ctx)
		if err != nil {
			return nil, err
		}
	}

	runner := dedupe.NewRunner(k.store,
		dedupe.WithLogger(k.logger),
		dedupe.WithDryRun(k.config.dryRun))
	return runner.Run(ctx, keys)
}

// Recover runs a corruption recovery pass.
func (k *keeper) Recover(ctx context.Context, filter records.Filter, opts ...recovery.RunnerOption) (*recovery.Summary, error) {
	base := []recovery.RunnerOption{recovery.WithLogger(k.logger)}
	runner := recovery.NewRunner(k.store, k.engine, append(base, opts...)...)
	return runner.Run(ctx, filter)
}

// Match finds the best-matching local record for an inbound display name.
func (k *keeper) Match(ctx context.Context, displayName string, filter records.Filter) (match.Result, error) {
	candidates, err := k.store.All(ctx, filter)
	if err != nil {
		return match.Unmatched(), err
	}
	return k.matcher.Best(displayName, candidates), nil
}

// Close releases the underlying store.
func (k *keeper) Close() error {
	return k.closer()
}

// naturalKeys returns the distinct natural keys present in the store.
func (k *keeper) naturalKeys(ctx context.Context) ([]string, error) {
	recs, err := k.store.All(ctx, records.Filter{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var keys []string
	for i := range recs {
		key := recs[i].NaturalKey
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

// defaultLogger is shared by keepers created without WithLogger.
func defaultLogger() *zerolog.Logger {
	return logging.Default()
}
