package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareDatabase(t *testing.T) {
	ctx := context.Background()

	t.Run("waits before migrating", func(t *testing.T) {
		var calls []string
		err := prepareDatabase(ctx,
			func(context.Context) bool { calls = append(calls, "ready"); return true },
			func() error { calls = append(calls, "migrate"); return nil })
		require.NoError(t, err)
		assert.Equal(t, []string{"ready", "migrate"}, calls)
	})

	t.Run("does not migrate an unreachable database", func(t *testing.T) {
		migrated := false
		err := prepareDatabase(ctx,
			func(context.Context) bool { return false },
			func() error { migrated = true; return nil })
		assert.Error(t, err)
		assert.False(t, migrated)
	})

	t.Run("wraps migration errors", func(t *testing.T) {
		boom := errors.New("dirty database version 3")
		err := prepareDatabase(ctx,
			func(context.Context) bool { return true },
			func() error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}
