package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/records"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(id, key string, kind records.Kind) records.Record {
	return records.Record{
		ID:          id,
		NaturalKey:  key,
		Kind:        kind,
		DisplayName: "Panorama Jet Charter LLC",
		TextFields:  map[string]string{"body": "hello"},
		CreatedAt:   utc.Time{Time: time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)},
		UpdatedAt:   utc.Time{Time: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)},
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "records.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Put(context.Background(), sample("req-1", "JZLHJF", records.KindRequest)))
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sample("req-1", "JZLHJF", records.KindRequest)
	rec.Audit = records.AuditTrail{}.Append(records.AuditEntry{
		At:     utc.Time{Time: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
		RunID:  "run-1",
		Action: records.AuditActionRecovery,
		Field:  "body",
		Data:   map[string]any{"recovered": true},
	})
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, rec.NaturalKey, got.NaturalKey)
	assert.Equal(t, rec.Kind, got.Kind)
	assert.Equal(t, rec.DisplayName, got.DisplayName)
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(rec.UpdatedAt))

	body, ok := got.TextField("body")
	require.True(t, ok)
	assert.Equal(t, "hello", body)

	require.Len(t, got.Audit, 1)
	assert.Equal(t, "run-1", got.Audit[0].RunID)
	assert.Equal(t, records.AuditActionRecovery, got.Audit[0].Action)
	assert.Equal(t, true, got.Audit[0].Data["recovered"])
}

func TestPutIsUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sample("req-1", "JZLHJF", records.KindRequest)
	require.NoError(t, s.Put(ctx, rec))

	rec.DisplayName = "Atlas Air"
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "Atlas Air", got.DisplayName)

	all, err := s.All(ctx, records.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestZeroTimesSurviveRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sample("req-1", "JZLHJF", records.KindRequest)
	rec.UpdatedAt = utc.Time{}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.IsZero())
	assert.True(t, got.EffectiveTime().Equal(rec.CreatedAt))
}

func TestAllFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sample("b", "JZLHJF", records.KindRequest)))
	require.NoError(t, s.Put(ctx, sample("a", "JZLHJF", records.KindMessage)))
	require.NoError(t, s.Put(ctx, sample("c", "QMXRPT", records.KindRequest)))

	all, err := s.All(ctx, records.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)

	reqs, err := s.All(ctx, records.Filter{Kind: records.KindRequest})
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	keyed, err := s.All(ctx, records.Filter{NaturalKeys: []string{"JZLHJF"}})
	require.NoError(t, err)
	assert.Len(t, keyed, 2)

	byKey, err := s.ByNaturalKey(ctx, "QMXRPT")
	require.NoError(t, err)
	require.Len(t, byKey, 1)
	assert.Equal(t, "c", byKey[0].ID)
}

func TestDeleteCascadesToChildren(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	parent := sample("req-1", "JZLHJF", records.KindRequest)
	child := sample("msg-1", "JZLHJF", records.KindMessage)
	child.ParentID = "req-1"
	require.NoError(t, s.Put(ctx, parent))
	require.NoError(t, s.Put(ctx, child))

	assert.True(t, s.Cascades())

	n, err := s.Delete(ctx, []string{"req-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	visible, err := s.All(ctx, records.Filter{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	// Soft-deleted rows remain retrievable for audit.
	gone, err := s.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, gone.Deleted)

	withDeleted, err := s.All(ctx, records.Filter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, withDeleted, 2)
}

func TestDeleteReportsPartialFailures(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sample("req-1", "JZLHJF", records.KindRequest)))

	n, err := s.Delete(ctx, []string{"missing", "req-1"})
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, errors.IsNotFound(err))

	// Deleting an already deleted record is also not found.
	n, err = s.Delete(ctx, []string{"req-1"})
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestUpdateTextFieldAppendsAudit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sample("msg-1", "JZLHJF", records.KindMessage)
	require.NoError(t, s.Put(ctx, rec))

	first := records.AuditEntry{
		At:     utc.Now(),
		RunID:  "run-1",
		Action: records.AuditActionRecovery,
		Field:  "body",
		Data:   map[string]any{"recovered": true, "shiftApplied": 2.0},
	}
	require.NoError(t, s.UpdateTextField(ctx, "msg-1", "body", "This is a quote", first))

	second := records.AuditEntry{
		At:     utc.Now(),
		RunID:  "run-2",
		Action: records.AuditActionRecovery,
		Field:  "body",
		Data:   map[string]any{"recovered": false},
	}
	require.NoError(t, s.UpdateTextField(ctx, "msg-1", "body", "again", second))

	got, err := s.Get(ctx, "msg-1")
	require.NoError(t, err)

	body, _ := got.TextField("body")
	assert.Equal(t, "again", body)
	require.Len(t, got.Audit, 2)
	assert.Equal(t, "run-1", got.Audit[0].RunID)
	assert.Equal(t, "run-2", got.Audit[1].RunID)
	assert.True(t, got.Audit.HasRecovery("body"))
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestUpdateTextFieldMissingRecord(t *testing.T) {
	s := openTestStore(t)

	err := s.UpdateTextField(context.Background(), "missing", "body", "x", records.AuditEntry{})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestChildCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	parent := sample("req-1", "JZLHJF", records.KindRequest)
	c1 := sample("msg-1", "JZLHJF", records.KindMessage)
	c1.ParentID = "req-1"
	c2 := sample("msg-2", "JZLHJF", records.KindMessage)
	c2.ParentID = "req-1"
	require.NoError(t, s.Put(ctx, parent))
	require.NoError(t, s.Put(ctx, c1))
	require.NoError(t, s.Put(ctx, c2))

	n, err := s.ChildCount(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Delete(ctx, []string{"msg-1"})
	require.NoError(t, err)

	n, err = s.ChildCount(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, sample("req-1", "JZLHJF", records.KindRequest)))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "JZLHJF", got.NaturalKey)
}
