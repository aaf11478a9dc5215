package memory

import (
	"context"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/records"
)

func sample(id, key string, kind records.Kind) records.Record {
	return records.Record{
		ID:         id,
		NaturalKey: key,
		Kind:       kind,
		CreatedAt:  utc.Time{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		TextFields: map[string]string{"body": "hello"},
	}
}

func TestPutAndGet(t *testing.T) {
	s := New()
	s.Put(sample("req-1", "JZLHJF", records.KindRequest))

	rec, err := s.Get("req-1")
	require.NoError(t, err)
	assert.Equal(t, "JZLHJF", rec.NaturalKey)

	_, err = s.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	s.Put(sample("req-1", "JZLHJF", records.KindRequest))

	rec, err := s.Get("req-1")
	require.NoError(t, err)
	rec.TextFields["body"] = "mutated"

	again, err := s.Get("req-1")
	require.NoError(t, err)
	body, _ := again.TextField("body")
	assert.Equal(t, "hello", body)
}

func TestByNaturalKeyExcludesDeleted(t *testing.T) {
	s := New(WithRecords(
		sample("req-1", "JZLHJF", records.KindRequest),
		sample("req-2", "JZLHJF", records.KindRequest),
		sample("req-3", "QMXRPT", records.KindRequest),
	))

	_, err := s.Delete(context.Background(), []string{"req-2"})
	require.NoError(t, err)

	got, err := s.ByNaturalKey(context.Background(), "JZLHJF")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "req-1", got[0].ID)
}

func TestAllFiltersAndOrders(t *testing.T) {
	s := New(WithRecords(
		sample("b", "JZLHJF", records.KindRequest),
		sample("a", "JZLHJF", records.KindMessage),
		sample("c", "QMXRPT", records.KindRequest),
	))

	all, err := s.All(context.Background(), records.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)

	reqs, err := s.All(context.Background(), records.Filter{Kind: records.KindRequest})
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	keyed, err := s.All(context.Background(), records.Filter{NaturalKeys: []string{"QMXRPT"}})
	require.NoError(t, err)
	require.Len(t, keyed, 1)
	assert.Equal(t, "c", keyed[0].ID)
}

func TestDeleteSoftDeletesAndCascades(t *testing.T) {
	parent := sample("req-1", "JZLHJF", records.KindRequest)
	child := sample("msg-1", "JZLHJF", records.KindMessage)
	child.ParentID = "req-1"
	s := New(WithRecords(parent, child))

	n, err := s.Delete(context.Background(), []string{"req-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, err := s.Get("req-1")
	require.NoError(t, err)
	assert.True(t, gone.Deleted)

	orphan, err := s.Get("msg-1")
	require.NoError(t, err)
	assert.True(t, orphan.Deleted)

	// Deleted records stay out of filtered reads but remain retrievable.
	visible, err := s.All(context.Background(), records.Filter{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	withDeleted, err := s.All(context.Background(), records.Filter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, withDeleted, 2)
}

func TestDeleteWithoutCascadeKeepsChildren(t *testing.T) {
	parent := sample("req-1", "JZLHJF", records.KindRequest)
	child := sample("msg-1", "JZLHJF", records.KindMessage)
	child.ParentID = "req-1"
	s := New(WithCascade(false), WithRecords(parent, child))

	assert.False(t, s.Cascades())

	_, err := s.Delete(context.Background(), []string{"req-1"})
	require.NoError(t, err)

	kept, err := s.Get("msg-1")
	require.NoError(t, err)
	assert.False(t, kept.Deleted)
}

func TestDeleteReportsPartialFailures(t *testing.T) {
	s := New(WithRecords(sample("req-1", "JZLHJF", records.KindRequest)))

	n, err := s.Delete(context.Background(), []string{"missing", "req-1"})
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, errors.IsNotFound(err))

	rec, getErr := s.Get("req-1")
	require.NoError(t, getErr)
	assert.True(t, rec.Deleted)
}

func TestDeleteAlreadyDeletedIsNotFound(t *testing.T) {
	s := New(WithRecords(sample("req-1", "JZLHJF", records.KindRequest)))

	_, err := s.Delete(context.Background(), []string{"req-1"})
	require.NoError(t, err)

	n, err := s.Delete(context.Background(), []string{"req-1"})
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestUpdateTextFieldAppendsAudit(t *testing.T) {
	s := New(WithRecords(sample("msg-1", "JZLHJF", records.KindMessage)))

	entry := records.AuditEntry{
		RunID:  "run-1",
		Action: records.AuditActionRecovery,
		Field:  "body",
		Data:   map[string]any{"recovered": true},
	}
	require.NoError(t, s.UpdateTextField(context.Background(), "msg-1", "body", "fixed", entry))

	rec, err := s.Get("msg-1")
	require.NoError(t, err)
	body, _ := rec.TextField("body")
	assert.Equal(t, "fixed", body)
	require.Len(t, rec.Audit, 1)
	assert.Equal(t, "run-1", rec.Audit[0].RunID)
	assert.False(t, rec.Audit[0].At.IsZero())

	err = s.UpdateTextField(context.Background(), "missing", "body", "x", entry)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestChildCount(t *testing.T) {
	parent := sample("req-1", "JZLHJF", records.KindRequest)
	c1 := sample("msg-1", "JZLHJF", records.KindMessage)
	c1.ParentID = "req-1"
	c2 := sample("msg-2", "JZLHJF", records.KindMessage)
	c2.ParentID = "req-1"
	s := New(WithCascade(false), WithRecords(parent, c1, c2))

	n, err := s.ChildCount(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Delete(context.Background(), []string{"msg-1"})
	require.NoError(t, err)

	n, err = s.ChildCount(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
