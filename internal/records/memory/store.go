// Package memory provides an in-memory record store used by tests and
// dry runs. It implements the same contract as the SQLite store, including
// soft deletes and optional cascade, so batch runners behave identically
// against either backend.
package memory

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"

	"github.com/agentstation/utc"

	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/records"
)

// Store is a map-backed record store guarded by a single lock.
type Store struct {
	mu      sync.RWMutex
	recs    map[string]records.Record
	cascade bool
}

// Option configures a Store.
type Option func(*Store)

// WithCascade controls whether Delete removes dependent children with
// their parent. Disabling it lets tests exercise the integrity-violation
// path of the canonicalization runner.
func WithCascade(cascade bool) Option {
	return func(s *Store) {
		s.cascade = cascade
	}
}

// WithRecords seeds the store.
func WithRecords(recs ...records.Record) Option {
	return func(s *Store) {
		for _, r := range recs {
			s.recs[r.ID] = r.Copy()
		}
	}
}

// New creates an empty in-memory store. Cascade is on by default.
func New(opts ...Option) *Store {
	s := &Store{
		recs:    make(map[string]records.Record),
		cascade: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put inserts or replaces a record.
func (s *Store) Put(rec records.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ID] = rec.Copy()
}

// Get returns a copy of the record, including soft-deleted ones.
func (s *Store) Get(id string) (records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return records.Record{}, errors.NewNotFoundError("record", id)
	}
	return rec.Copy(), nil
}

// ByNaturalKey returns all non-deleted records sharing the key.
func (s *Store) ByNaturalKey(ctx context.Context, key string) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.All(ctx, records.Filter{NaturalKeys: []string{key}})
}

// All returns every record passing the filter, ordered by ID so results
// are reproducible. Callers needing recency order sort themselves.
func (s *Store) All(ctx context.Context, f records.Filter) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []records.Record
	for _, rec := range s.recs {
		if f.Matches(&rec) {
			out = append(out, rec.Copy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete soft-deletes the given records, cascading to children when
// enabled. Missing records are reported per ID; the rest of the batch
// still deletes.
func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	var errs []error
	for _, id := range ids {
		rec, ok := s.recs[id]
		if !ok || rec.Deleted {
			errs = append(errs, errors.NewNotFoundError("record", id))
			continue
		}
		rec.Deleted = true
		rec.UpdatedAt = utc.Now()
		s.recs[id] = rec
		deleted++

		if s.cascade {
			for cid, child := range s.recs {
				if child.ParentID == id && !child.Deleted {
					child.Deleted = true
					child.UpdatedAt = utc.Now()
					s.recs[cid] = child
				}
			}
		}
	}
	return deleted, stderrors.Join(errs...)
}

// UpdateTextField overwrites one text field and appends the audit entry in
// the same critical section.
func (s *Store) UpdateTextField(ctx context.Context, id, field, value string, entry records.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return errors.NewNotFoundError("record", id)
	}
	rec = rec.Copy()
	rec.SetTextField(field, value)
	rec.Audit = rec.Audit.Append(entry)
	rec.UpdatedAt = utc.Now()
	s.recs[id] = rec
	return nil
}

// ChildCount counts non-deleted records whose parent is id.
func (s *Store) ChildCount(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.recs {
		if rec.ParentID == id && !rec.Deleted {
			count++
		}
	}
	return count, nil
}

// Cascades reports whether Delete removes dependent children.
func (s *Store) Cascades() bool {
	return s.cascade
}

var _ records.Store = (*Store)(nil)
