package repo

import (
	"context"
	"testing"
	"time"

	"FunnelBot/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSessionStoreContract checks the behaviour every SessionStore shares.
func runSessionStoreContract(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("missing session", func(t *testing.T) {
		_, err := store.Get(ctx, 404)
		assert.ErrorIs(t, err, model.ErrSessionNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		s := model.NewSession(model.MessageRef{ChatID: 10, MessageID: 20}, now)
		s.Answers["q1"] = "sim"
		require.NoError(t, store.Put(ctx, 1, s))

		got, err := store.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	})

	t.Run("put replaces", func(t *testing.T) {
		s := model.NewSession(model.MessageRef{ChatID: 10, MessageID: 20}, now)
		require.NoError(t, store.Put(ctx, 2, s))

		s.Stage = model.Rejected
		s.ActiveMessage.MessageID = 21
		require.NoError(t, store.Put(ctx, 2, s))

		got, err := store.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, model.Rejected, got.Stage)
		assert.Equal(t, 21, got.ActiveMessage.MessageID)
		assert.NotNil(t, got.Answers)
	})

	t.Run("returned session is a copy", func(t *testing.T) {
		s := model.NewSession(model.MessageRef{ChatID: 1, MessageID: 1}, now)
		require.NoError(t, store.Put(ctx, 3, s))

		got, err := store.Get(ctx, 3)
		require.NoError(t, err)
		got.Answers["q1"] = "changed"
		got.Stage = model.Final

		again, err := store.Get(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, again.Answers)
		assert.Equal(t, model.Question(0), again.Stage)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	store := NewMemoryStore()
	runSessionStoreContract(t, store)
	assert.Equal(t, 3, store.Len())
	assert.NoError(t, store.Close())
}
