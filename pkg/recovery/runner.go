package recovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/logging"
	"github.com/charterops/tripkeeper/pkg/records"
)

// Runner applies the recovery engine to every text field of every record
// matching a filter. The default mode only diagnoses; mutations require
// Fix. A record whose audit trail already records a recovery attempt for a
// field is skipped unless Force is set.
type Runner struct {
	store  records.Store
	engine *Engine
	logger *zerolog.Logger
	fix    bool
	force  bool
	fields []string
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

// WithFix enables persistence of recovery decisions. Without it the runner
// diagnoses and reports only.
func WithFix(fix bool) RunnerOption {
	return func(r *Runner) {
		r.fix = fix
	}
}

// WithForce re-processes fields whose audit trail already records a
// recovery attempt.
func WithForce(force bool) RunnerOption {
	return func(r *Runner) {
		r.force = force
	}
}

// WithFields restricts the pass to the named text fields.
func WithFields(fields ...string) RunnerOption {
	return func(r *Runner) {
		r.fields = fields
	}
}

// NewRunner creates a recovery runner over the given store.
func NewRunner(store records.Store, engine *Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:  store,
		engine: engine,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads every record matching the filter and processes its text
// fields. Persistence failures are recorded per record and never abort the
// batch.
func (r *Runner) Run(ctx context.Context, filter records.Filter) (*Summary, error) {
	recs, err := r.store.All(ctx, filter)
	if err != nil {
		return nil, errors.WrapPersistence("load", "", err)
	}

	summary := NewSummary(uuid.NewString(), r.fix)
	ctx = logging.WithLogger(ctx, r.logger)
	ctx = logging.WithRunID(ctx, summary.RunID)
	ctx = logging.WithOperation(ctx, "recover")

	for i := range recs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		r.runRecord(logging.WithRecord(ctx, recs[i].ID), summary, &recs[i])
	}

	logging.Ctx(ctx).Info().
		Int("scanned", summary.Scanned).
		Int("clean", summary.Clean).
		Int("recovered", summary.Recovered).
		Int("unrecoverable", summary.Unrecoverable).
		Int("skipped", summary.Skipped).
		Int("applied", summary.Applied).
		Int("failures", len(summary.Failures)).
		Msg("Recovery pass complete")

	return summary, nil
}

// runRecord processes every selected text field of one record.
func (r *Runner) runRecord(ctx context.Context, summary *Summary, rec *records.Record) {
	summary.Scanned++
	logger := logging.Ctx(ctx)

	for _, field := range r.selectFields(rec) {
		value, ok := rec.TextField(field)
		if !ok || value == "" {
			continue
		}

		if !r.force && rec.Audit.HasRecovery(field) {
			summary.Skipped++
			continue
		}

		res := r.engine.Inspect(value)
		switch res.Outcome {
		case OutcomeClean:
			summary.Clean++
			continue
		case OutcomeRecovered:
			summary.Recovered++
			logger.Info().
				Str("field", field).
				Int("shift", res.Best.Shift).
				Float64("score", res.Best.Score.Value).
				Bool("fix", r.fix).
				Msg("Corrupted text recovered")
		case OutcomeUnrecoverable:
			summary.Unrecoverable++
			logger.Warn().
				Str("field", field).
				Msg("Corrupted text could not be recovered")
		}

		if !r.fix {
			continue
		}

		entry := records.AuditEntry{
			At:     utc.Now(),
			RunID:  summary.RunID,
			Action: records.AuditActionRecovery,
			Field:  field,
			Data:   r.engine.AuditData(res),
		}
		if err := r.store.UpdateTextField(ctx, rec.ID, field, res.Text, entry); err != nil {
			summary.RecordFailure(rec.ID, field, errors.WrapPersistence("update", rec.ID, err))
			continue
		}
		summary.Applied++
	}
}

// selectFields returns the text fields to process for a record, sorted for
// deterministic iteration.
func (r *Runner) selectFields(rec *records.Record) []string {
	if len(r.fields) > 0 {
		return r.fields
	}
	fields := make([]string, 0, len(rec.TextFields))
	for name := range rec.TextFields {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// Failure records one per-record persistence failure.
type Failure struct {
	RecordID string `json:"record_id" yaml:"record_id"`
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Summary aggregates the outcome of one recovery pass.
type Summary struct {
	RunID         string    `json:"run_id" yaml:"run_id"`
	StartedAt     utc.Time  `json:"started_at" yaml:"started_at"`
	Fix           bool      `json:"fix" yaml:"fix"`
	Scanned       int       `json:"scanned" yaml:"scanned"`
	Clean         int       `json:"clean" yaml:"clean"`
	Recovered     int       `json:"recovered" yaml:"recovered"`
	Unrecoverable int       `json:"unrecoverable" yaml:"unrecoverable"`
	Skipped       int       `json:"skipped" yaml:"skipped"`
	Applied       int       `json:"applied" yaml:"applied"`
	Failures      []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewSummary creates an empty summary for a pass.
func NewSummary(runID string, fix bool) *Summary {
	return &Summary{
		RunID:     runID,
		StartedAt: utc.Now(),
		Fix:       fix,
	}
}

// RecordFailure appends a failure without aborting the pass.
func (s *Summary) RecordFailure(recordID, field string, err error) {
	s.Failures = append(s.Failures, Failure{
		RecordID: recordID,
		Field:    field,
		Reason:   err.Error(),
	})
}

// String renders a one-line report suitable for CLI output.
func (s *Summary) String() string {
	mode := "diagnose"
	if s.Fix {
		mode = "fix"
	}
	return fmt.Sprintf("scanned=%d clean=%d recovered=%d unrecoverable=%d skipped=%d applied=%d failures=%d (%s)",
		s.Scanned, s.Clean, s.Recovered, s.Unrecoverable, s.Skipped, s.Applied, len(s.Failures), mode)
}
