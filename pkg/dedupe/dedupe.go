// Package dedupe implements the canonicalization pass that collapses
// duplicate records sharing a natural key into a single canonical record.
//
// Planning is a pure function over an in-memory group so it can be tested
// without a store; the Runner executes plans against a records.Store and
// accounts for per-record failures.
package dedupe

import (
	"sort"

	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/records"
)

// Plan is the decision produced for one natural-key group: the record to
// keep and the duplicates to remove. Executing and re-planning the same
// group is a no-op, since the surviving group has cardinality 1.
type Plan struct {
	NaturalKey string
	Canonical  records.Record
	ToDelete   []records.Record
}

// NoOp reports whether the plan requires no deletions.
func (p *Plan) NoOp() bool {
	return len(p.ToDelete) == 0
}

// Build orders the group by recency and designates the most recently
// updated record as canonical. Ties on UpdatedAt are broken by CreatedAt
// descending, then by ID ascending, so the canonical choice is fully
// deterministic. An empty group is a validation error.
func Build(naturalKey string, group []records.Record) (*Plan, error) {
	if len(group) == 0 {
		return nil, errors.NewValidationError("group", naturalKey, "empty record group")
	}

	if len(group) == 1 {
		return &Plan{NaturalKey: naturalKey, Canonical: group[0]}, nil
	}

	sorted := make([]records.Record, len(group))
	copy(sorted, group)

	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].EffectiveTime(), sorted[j].EffectiveTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	return &Plan{
		NaturalKey: naturalKey,
		Canonical:  sorted[0],
		ToDelete:   sorted[1:],
	}, nil
}
