package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charterops/tripkeeper/internal/records/memory"
	"github.com/charterops/tripkeeper/pkg/logging"
	"github.com/charterops/tripkeeper/pkg/records"
)

func seedGroup(key string) []records.Record {
	return []records.Record{
		rec(key+"-1", key, ts(2024, 1, 1), ts(2024, 1, 1)),
		rec(key+"-2", key, ts(2024, 1, 2), ts(2024, 3, 15)),
		rec(key+"-3", key, ts(2024, 1, 3), ts(2024, 2, 10)),
	}
}

func TestRunnerRemovesDuplicates(t *testing.T) {
	store := memory.New(memory.WithRecords(seedGroup("JZLHJF")...))
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()))

	summary, err := runner.Run(context.Background(), []string{"JZLHJF"})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Equal(t, 2, summary.DuplicatesFound)
	assert.Equal(t, 2, summary.Removed)
	assert.Empty(t, summary.Failures)

	remaining, err := store.ByNaturalKey(context.Background(), "JZLHJF")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "JZLHJF-2", remaining[0].ID)

	// Deletions are soft: the duplicates are still retrievable.
	deleted, err := store.Get("JZLHJF-1")
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
}

func TestRunnerIsIdempotent(t *testing.T) {
	store := memory.New(memory.WithRecords(seedGroup("JZLHJF")...))
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()))

	_, err := runner.Run(context.Background(), []string{"JZLHJF"})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), []string{"JZLHJF"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Equal(t, 0, summary.DuplicatesFound)
	assert.Equal(t, 0, summary.Removed)
}

func TestRunnerDryRun(t *testing.T) {
	store := memory.New(memory.WithRecords(seedGroup("JZLHJF")...))
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()), WithDryRun(true))

	summary, err := runner.Run(context.Background(), []string{"JZLHJF"})
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.WouldRemove)
	assert.Equal(t, 0, summary.Removed)

	remaining, err := store.ByNaturalKey(context.Background(), "JZLHJF")
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestRunnerRefusesToOrphanChildren(t *testing.T) {
	group := seedGroup("JZLHJF")
	child := records.Record{
		ID:         "msg-1",
		NaturalKey: "JZLHJF",
		Kind:       records.KindMessage,
		ParentID:   "JZLHJF-1",
		CreatedAt:  ts(2024, 1, 5),
	}
	store := memory.New(
		memory.WithCascade(false),
		memory.WithRecords(append(group, child)...),
	)
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()))

	summary, err := runner.Run(context.Background(), []string{"JZLHJF"})
	require.NoError(t, err)

	// JZLHJF-1 has a child and the store does not cascade, so it is
	// skipped; JZLHJF-3 still deletes.
	assert.Equal(t, 1, summary.Removed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "JZLHJF-1", summary.Failures[0].RecordID)
	assert.Contains(t, summary.Failures[0].Reason, "dependent")

	kept, err := store.Get("JZLHJF-1")
	require.NoError(t, err)
	assert.False(t, kept.Deleted)
}

func TestRunnerCascadingStoreDeletesChildren(t *testing.T) {
	group := seedGroup("JZLHJF")
	child := records.Record{
		ID:         "msg-1",
		NaturalKey: "JZLHJF",
		Kind:       records.KindMessage,
		ParentID:   "JZLHJF-1",
		CreatedAt:  ts(2024, 1, 5),
	}
	store := memory.New(memory.WithRecords(append(group, child)...))
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()))

	summary, err := runner.Run(context.Background(), []string{"JZLHJF"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Removed)
	assert.Empty(t, summary.Failures)

	orphan, err := store.Get("msg-1")
	require.NoError(t, err)
	assert.True(t, orphan.Deleted)
}

func TestRunnerNeverTreatsChildrenAsDuplicates(t *testing.T) {
	parent := rec("req-1", "QMXRPT", ts(2024, 1, 1), ts(2024, 1, 1))
	msgA := records.Record{ID: "msg-1", NaturalKey: "QMXRPT", Kind: records.KindMessage, ParentID: "req-1", CreatedAt: ts(2024, 1, 2)}
	msgB := records.Record{ID: "msg-2", NaturalKey: "QMXRPT", Kind: records.KindMessage, ParentID: "req-1", CreatedAt: ts(2024, 1, 3)}
	store := memory.New(memory.WithRecords(parent, msgA, msgB))
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()))

	summary, err := runner.Run(context.Background(), []string{"QMXRPT"})
	require.NoError(t, err)

	// Messages share the trip code through their parent; they are not
	// duplicates of it.
	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Equal(t, 0, summary.DuplicatesFound)
	assert.Equal(t, 0, summary.Removed)
}

func TestRunnerChildOnlyKeyIsNotAFailure(t *testing.T) {
	// The parent was already removed; its messages still carry the trip
	// code. The key exists, so it must not be reported as missing.
	msgA := records.Record{ID: "msg-1", NaturalKey: "QMXRPT", Kind: records.KindMessage, ParentID: "req-gone", CreatedAt: ts(2024, 1, 2)}
	msgB := records.Record{ID: "msg-2", NaturalKey: "QMXRPT", Kind: records.KindMessage, ParentID: "req-gone", CreatedAt: ts(2024, 1, 3)}
	store := memory.New(memory.WithRecords(msgA, msgB))
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()))

	summary, err := runner.Run(context.Background(), []string{"QMXRPT"})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.GroupsProcessed)
	assert.Equal(t, 0, summary.Removed)
	assert.Empty(t, summary.Failures)
}

func TestRunnerLogsRunContext(t *testing.T) {
	store := memory.New(memory.WithRecords(seedGroup("JZLHJF")...))
	tl := logging.NewTestLogger(t)
	runner := NewRunner(store, WithLogger(tl.Logger))

	summary, err := runner.Run(context.Background(), []string{"JZLHJF"})
	require.NoError(t, err)

	assert.True(t, tl.Contains(summary.RunID))
	assert.True(t, tl.Contains("JZLHJF"))
	assert.True(t, tl.Contains("Canonical record selected"))
	assert.True(t, tl.Contains("Canonicalization pass complete"))
}

func TestRunnerContinuesPastMissingKeys(t *testing.T) {
	store := memory.New(memory.WithRecords(seedGroup("JZLHJF")...))
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()))

	summary, err := runner.Run(context.Background(), []string{"NOSUCH", "JZLHJF"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GroupsProcessed)
	assert.Equal(t, 2, summary.Removed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "NOSUCH", summary.Failures[0].NaturalKey)
}

func TestRunnerRequiresKeys(t *testing.T) {
	runner := NewRunner(memory.New(), WithLogger(logging.NewNopLogger()))
	_, err := runner.Run(context.Background(), nil)
	require.Error(t, err)
}

func TestRunnerHonorsContextCancellation(t *testing.T) {
	store := memory.New(memory.WithRecords(seedGroup("JZLHJF")...))
	runner := NewRunner(store, WithLogger(logging.NewNopLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, []string{"JZLHJF"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSummaryString(t *testing.T) {
	s := NewSummary("run-1", false)
	s.GroupsProcessed = 2
	s.DuplicatesFound = 3
	s.Removed = 3
	assert.Equal(t, "groups=2 duplicates=3 removed=3 failures=0", s.String())

	d := NewSummary("run-2", true)
	d.GroupsProcessed = 1
	d.DuplicatesFound = 2
	d.WouldRemove = 2
	assert.Equal(t, "groups=1 duplicates=2 would_remove=2 failures=0 (dry run)", d.String())
	assert.WithinDuration(t, time.Now().UTC(), d.StartedAt.Time, time.Minute)
}
