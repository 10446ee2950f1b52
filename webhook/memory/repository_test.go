package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/marcelsud/sumit-gateway/webhook/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id string, status webhook.Status, created time.Time) webhook.Event {
	return webhook.Event{
		ID:        id,
		EventType: "payment.completed",
		Payload:   []byte(`{"ok":true}`),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	now := time.Now()

	t.Run("success - create and get", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, event("a", webhook.Pending, now)))

		got, err := repo.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, webhook.Pending, got.Status)
		assert.JSONEq(t, `{"ok":true}`, string(got.Payload))
	})

	t.Run("error - duplicate create", func(t *testing.T) {
		assert.Error(t, repo.Create(ctx, event("a", webhook.Pending, now)))
	})

	t.Run("error - not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
		assert.ErrorIs(t, repo.Save(ctx, event("missing", webhook.Sent, now)), webhook.ErrNotFound)
	})

	t.Run("returned events do not alias stored state", func(t *testing.T) {
		got, err := repo.Get(ctx, "a")
		require.NoError(t, err)
		got.Payload[0] = 'X'
		next := now.Add(time.Hour)
		got.NextRetryAt = &next

		again, err := repo.Get(ctx, "a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(again.Payload))
		assert.Nil(t, again.NextRetryAt)
	})
}

func TestRepository_Lists(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	now := time.Now()

	due1, due2, later := now.Add(-2*time.Minute), now.Add(-time.Minute), now.Add(time.Hour)
	for _, ev := range []webhook.Event{
		{ID: "r-late", Status: webhook.Retrying, NextRetryAt: &later, CreatedAt: now},
		{ID: "r-2", Status: webhook.Retrying, NextRetryAt: &due2, CreatedAt: now},
		{ID: "r-1", Status: webhook.Retrying, NextRetryAt: &due1, CreatedAt: now},
		{ID: "f-1", Status: webhook.Failed, CreatedAt: now.Add(-time.Hour)},
		{ID: "f-2", Status: webhook.Failed, CreatedAt: now},
		{ID: "s-1", Status: webhook.Sent, CreatedAt: now},
	} {
		require.NoError(t, repo.Create(ctx, ev))
	}

	due, err := repo.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "r-1", due[0].ID)
	assert.Equal(t, "r-2", due[1].ID)

	due, err = repo.ListDue(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)

	failed, err := repo.ListByStatus(ctx, webhook.Failed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "f-1", failed[0].ID)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[webhook.Retrying])
	assert.Equal(t, int64(2), counts[webhook.Failed])
	assert.Equal(t, int64(1), counts[webhook.Sent])
	assert.Equal(t, int64(0), counts[webhook.Pending])
}

func TestRepository_Lock(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()

	t.Run("second holder is refused until release", func(t *testing.T) {
		token, err := repo.Lock(ctx, "a", time.Minute)
		require.NoError(t, err)

		_, err = repo.Lock(ctx, "a", time.Minute)
		assert.ErrorIs(t, err, webhook.ErrLocked)

		require.NoError(t, repo.Unlock(ctx, "a", token))
		token2, err := repo.Lock(ctx, "a", time.Minute)
		require.NoError(t, err)
		require.NoError(t, repo.Unlock(ctx, "a", token2))
	})

	t.Run("expired lease can be taken over and stale unlock is refused", func(t *testing.T) {
		stale, err := repo.Lock(ctx, "b", time.Millisecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		token, err := repo.Lock(ctx, "b", time.Minute)
		require.NoError(t, err)

		assert.ErrorIs(t, repo.Unlock(ctx, "b", stale), webhook.ErrLocked)
		_, err = repo.Lock(ctx, "b", time.Minute)
		assert.ErrorIs(t, err, webhook.ErrLocked)
		require.NoError(t, repo.Unlock(ctx, "b", token))
	})

	t.Run("extend keeps the lease past its original ttl", func(t *testing.T) {
		token, err := repo.Lock(ctx, "c", 20*time.Millisecond)
		require.NoError(t, err)
		require.NoError(t, repo.Extend(ctx, "c", token, time.Minute))
		time.Sleep(40 * time.Millisecond)

		_, err = repo.Lock(ctx, "c", time.Minute)
		assert.ErrorIs(t, err, webhook.ErrLocked)
		require.NoError(t, repo.Unlock(ctx, "c", token))
	})

	t.Run("error - extend after expiry", func(t *testing.T) {
		token, err := repo.Lock(ctx, "d", time.Millisecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		assert.ErrorIs(t, repo.Extend(ctx, "d", token, time.Minute), webhook.ErrLocked)
	})
}

func TestRepository_SaveHeld(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, event("e", webhook.Pending, now)))

	t.Run("success - holder writes", func(t *testing.T) {
		token, err := repo.Lock(ctx, "e", time.Minute)
		require.NoError(t, err)
		defer repo.Unlock(ctx, "e", token)

		require.NoError(t, repo.SaveHeld(ctx, event("e", webhook.Retrying, now), token))
		got, err := repo.Get(ctx, "e")
		require.NoError(t, err)
		assert.Equal(t, webhook.Retrying, got.Status)
	})

	t.Run("error - superseded holder cannot write", func(t *testing.T) {
		stale, err := repo.Lock(ctx, "e", time.Millisecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		token, err := repo.Lock(ctx, "e", time.Minute)
		require.NoError(t, err)
		defer repo.Unlock(ctx, "e", token)

		err = repo.SaveHeld(ctx, event("e", webhook.Sent, now), stale)
		assert.ErrorIs(t, err, webhook.ErrLocked)
		got, err := repo.Get(ctx, "e")
		require.NoError(t, err)
		assert.Equal(t, webhook.Retrying, got.Status)
	})

	t.Run("error - unlocked event", func(t *testing.T) {
		err := repo.SaveHeld(ctx, event("e", webhook.Sent, now), "not-a-token")
		assert.ErrorIs(t, err, webhook.ErrLocked)
	})
}
