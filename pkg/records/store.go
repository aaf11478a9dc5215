package records

import (
	"context"
)

// Filter narrows the records returned by Loader.All.
// A zero Filter matches every non-deleted record.
type Filter struct {
	// Kind restricts results to one record kind when non-empty.
	Kind Kind

	// NaturalKeys restricts results to records whose natural key is in the
	// list when non-empty.
	NaturalKeys []string

	// IncludeDeleted includes soft-deleted records in results.
	IncludeDeleted bool
}

// Matches reports whether the record passes the filter.
func (f Filter) Matches(r *Record) bool {
	if r.Deleted && !f.IncludeDeleted {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if len(f.NaturalKeys) > 0 {
		found := false
		for _, k := range f.NaturalKeys {
			if r.NaturalKey == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Loader retrieves records from the persistence store. Implementations may
// return records in arbitrary order; the canonicalization engine performs
// its own ordering.
type Loader interface {
	// ByNaturalKey returns all non-deleted records sharing the tracked
	// external identifier. An empty result is not an error.
	ByNaturalKey(ctx context.Context, key string) ([]Record, error)

	// All returns every record passing the filter.
	All(ctx context.Context, f Filter) ([]Record, error)
}

// Writer mutates records in the persistence store. Batch drivers call it
// one record at a time so a single failed write can be attributed and the
// rest of the batch can continue.
type Writer interface {
	// Delete removes the given records, cascading to dependent children
	// when the store supports it. It returns the number of records
	// actually deleted; on partial failure the count reflects successes
	// and the error describes the failures.
	Delete(ctx context.Context, ids []string) (int, error)

	// UpdateTextField overwrites one text field of one record and appends
	// the audit entry in the same write. The audit trail is append-only:
	// implementations must never drop prior entries.
	UpdateTextField(ctx context.Context, id, field, value string, entry AuditEntry) error
}

// ChildCounter reports dependent child records (messages under a request).
// The canonicalization runner consults it before deleting through a store
// that does not cascade, so a deletion can be refused instead of orphaning
// children.
type ChildCounter interface {
	ChildCount(ctx context.Context, id string) (int, error)
}

// Store is the full persistence contract consumed by the batch runners.
type Store interface {
	Loader
	Writer
	ChildCounter

	// Cascades reports whether Delete removes dependent children
	// atomically with their parent.
	Cascades() bool
}
