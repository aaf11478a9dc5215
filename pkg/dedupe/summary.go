package dedupe

import (
	"fmt"

	"github.com/agentstation/utc"
)

// Failure records one per-record or per-key failure from a pass.
type Failure struct {
	NaturalKey string `json:"natural_key" yaml:"natural_key"`
	RecordID   string `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Reason     string `json:"reason" yaml:"reason"`
}

// Summary aggregates the outcome of one canonicalization pass. Failures are
// collected rather than propagated: the batch always runs to completion.
type Summary struct {
	RunID           string    `json:"run_id" yaml:"run_id"`
	StartedAt       utc.Time  `json:"started_at" yaml:"started_at"`
	DryRun          bool      `json:"dry_run" yaml:"dry_run"`
	GroupsProcessed int       `json:"groups_processed" yaml:"groups_processed"`
	DuplicatesFound int       `json:"duplicates_found" yaml:"duplicates_found"`
	Removed         int       `json:"removed" yaml:"removed"`
	WouldRemove     int       `json:"would_remove,omitempty" yaml:"would_remove,omitempty"`
	Failures        []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewSummary creates an empty summary for a pass.
func NewSummary(runID string, dryRun bool) *Summary {
	return &Summary{
		RunID:     runID,
		StartedAt: utc.Now(),
		DryRun:    dryRun,
	}
}

// RecordFailure appends a failure without aborting the pass.
func (s *Summary) RecordFailure(naturalKey, recordID string, err error) {
	s.Failures = append(s.Failures, Failure{
		NaturalKey: naturalKey,
		RecordID:   recordID,
		Reason:     err.Error(),
	})
}

// String renders a one-line report suitable for CLI output.
func (s *Summary) String() string {
	if s.DryRun {
		return fmt.Sprintf("groups=%d duplicates=%d would_remove=%d failures=%d (dry run)",
			s.GroupsProcessed, s.DuplicatesFound, s.WouldRemove, len(s.Failures))
	}
	return fmt.Sprintf("groups=%d duplicates=%d removed=%d failures=%d",
		s.GroupsProcessed, s.DuplicatesFound, s.Removed, len(s.Failures))
}
