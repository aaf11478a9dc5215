package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charterops/tripkeeper/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("WithRunID stamps the run on the logger", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithRunID(ctx, "run-42")

		logging.Ctx(ctx).Info().Msg("pass started")

		assert.True(t, tl.Contains("run-42"))
		assert.Equal(t, "run-42", logging.RunID(ctx))
	})

	t.Run("RunID is empty without a run", func(t *testing.T) {
		assert.Equal(t, "", logging.RunID(context.Background()))
	})

	t.Run("WithNaturalKey adds the key to the logger", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithNaturalKey(ctx, "JZLHJF")

		logging.Ctx(ctx).Info().Msg("group loaded")

		assert.True(t, tl.Contains("natural_key"))
		assert.True(t, tl.Contains("JZLHJF"))
	})

	t.Run("WithRecord adds the record id to the logger", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithRecord(ctx, "req-2")

		logging.Ctx(ctx).Info().Msg("record deleted")

		assert.True(t, tl.Contains("record_id"))
		assert.True(t, tl.Contains("req-2"))
	})

	t.Run("WithOperation adds operation to the logger", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithOperation(ctx, "dedupe")

		logging.Ctx(ctx).Info().Msg("pass complete")

		assert.True(t, tl.Contains("dedupe"))
	})

	t.Run("WithFields adds typed fields to the logger", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithFields(ctx, map[string]any{
			"duplicates": 3,
			"dry_run":    true,
			"score":      18.5,
		})

		logging.Ctx(ctx).Info().Msg("summary")

		assert.True(t, tl.Contains(`"duplicates":3`))
		assert.True(t, tl.Contains(`"dry_run":true`))
		assert.True(t, tl.Contains(`"score":18.5`))
	})

	t.Run("WithField renders errors through the error key", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithField(ctx, "error", errSample)

		logging.Ctx(ctx).Info().Msg("failure recorded")

		assert.True(t, tl.Contains("boom"))
	})

	t.Run("FromContext falls back to the default logger", func(t *testing.T) {
		assert.NotNil(t, logging.FromContext(context.Background()))
		var missing context.Context
		assert.NotNil(t, logging.FromContext(missing))
	})

	t.Run("chaining context functions accumulates fields", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithRunID(ctx, "run-7")
		ctx = logging.WithNaturalKey(ctx, "QMXRPT")
		ctx = logging.WithRecord(ctx, "msg-1")

		logging.Ctx(ctx).Info().Msg("field recovered")

		assert.True(t, tl.Contains("run-7"))
		assert.True(t, tl.Contains("QMXRPT"))
		assert.True(t, tl.Contains("msg-1"))
	})
}
