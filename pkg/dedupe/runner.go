package dedupe

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/logging"
	"github.com/charterops/tripkeeper/pkg/records"
)

// Runner executes canonicalization plans against a record store.
// Groups keyed by distinct natural keys are independent; the runner
// processes one group fully before starting the next so a deletion never
// races a read of the same group.
type Runner struct {
	store  records.Store
	logger *zerolog.Logger
	dryRun bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used by the runner.
func WithLogger(logger *zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDryRun makes the runner plan and report without issuing deletions.
func WithDryRun(dryRun bool) RunnerOption {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// NewRunner creates a canonicalization runner over the given store.
func NewRunner(store records.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:  store,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes each natural key in turn: loads the group, builds the plan,
// and deletes the non-canonical duplicates. Per-key and per-record failures
// are recorded in the summary and never abort the batch.
func (r *Runner) Run(ctx context.Context, keys []string) (*Summary, error) {
	if len(keys) == 0 {
		return nil, errors.NewValidationError("keys", nil, "at least one natural key is required")
	}

	summary := NewSummary(uuid.NewString(), r.dryRun)
	ctx = logging.WithLogger(ctx, r.logger)
	ctx = logging.WithRunID(ctx, summary.RunID)
	ctx = logging.WithOperation(ctx, "dedupe")

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		r.runKey(logging.WithNaturalKey(ctx, key), summary, key)
	}

	logging.Ctx(ctx).Info().
		Int("groups", summary.GroupsProcessed).
		Int("duplicates", summary.DuplicatesFound).
		Int("removed", summary.Removed).
		Int("failures", len(summary.Failures)).
		Bool("dry_run", r.dryRun).
		Msg("Canonicalization pass complete")

	return summary, nil
}

// runKey canonicalizes one natural-key group. Child records share their
// parent's natural key without being duplicates of it, so the group is
// restricted to top-level records and partitioned by kind before planning.
func (r *Runner) runKey(ctx context.Context, summary *Summary, key string) {
	loaded, err := r.store.ByNaturalKey(ctx, key)
	if err != nil {
		summary.RecordFailure(key, "", errors.WrapPersistence("load", key, err))
		return
	}

	if len(loaded) == 0 {
		summary.RecordFailure(key, "", errors.NewNotFoundError("natural key", key))
		return
	}

	groups := make(map[records.Kind][]records.Record)
	for _, rec := range loaded {
		if rec.ParentID != "" {
			continue
		}
		groups[rec.Kind] = append(groups[rec.Kind], rec)
	}
	if len(groups) == 0 {
		// The key exists but only on child records, which inherit it
		// from their parent. Nothing to canonicalize.
		logging.Ctx(ctx).Debug().Msg("Only child records share this key")
		return
	}

	kinds := make([]string, 0, len(groups))
	for kind := range groups {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		r.runGroup(ctx, summary, key, groups[records.Kind(kind)])
	}
}

// runGroup canonicalizes one same-kind partition of a natural-key group.
func (r *Runner) runGroup(ctx context.Context, summary *Summary, key string, group []records.Record) {
	plan, err := Build(key, group)
	if err != nil {
		summary.RecordFailure(key, "", err)
		return
	}

	summary.GroupsProcessed++
	summary.DuplicatesFound += len(plan.ToDelete)

	if plan.NoOp() {
		logging.Ctx(ctx).Debug().Msg("Group already canonical")
		return
	}

	logging.Ctx(ctx).Info().
		Str("canonical", plan.Canonical.ID).
		Int("duplicates", len(plan.ToDelete)).
		Msg("Canonical record selected")

	for _, dup := range plan.ToDelete {
		r.deleteDuplicate(logging.WithRecord(ctx, dup.ID), summary, plan, &dup)
	}
}

// deleteDuplicate removes a single non-canonical record, refusing the
// deletion when it would orphan dependent children through a store that
// does not cascade.
func (r *Runner) deleteDuplicate(ctx context.Context, summary *Summary, plan *Plan, dup *records.Record) {
	if !r.store.Cascades() {
		children, err := r.store.ChildCount(ctx, dup.ID)
		if err != nil {
			summary.RecordFailure(plan.NaturalKey, dup.ID, errors.WrapPersistence("child count", dup.ID, err))
			return
		}
		if children > 0 {
			ierr := errors.NewIntegrityError(dup.ID, children)
			logging.Ctx(ctx).Error().
				Int("children", children).
				Msg("Refusing deletion that would orphan dependent records")
			summary.RecordFailure(plan.NaturalKey, dup.ID, ierr)
			return
		}
	}

	if r.dryRun {
		logging.Ctx(ctx).Info().Msg("Would delete duplicate (dry run)")
		summary.WouldRemove++
		return
	}

	if _, err := r.store.Delete(ctx, []string{dup.ID}); err != nil {
		summary.RecordFailure(plan.NaturalKey, dup.ID, errors.WrapPersistence("delete", dup.ID, err))
		return
	}
	summary.Removed++
}
