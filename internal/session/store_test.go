package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "test_session", 30*time.Minute, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
}

func TestSessionUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Resolve(context.Background(), "bogus")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionDestroy(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, store.Destroy(ctx, token))

	_, err = store.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	mr.FastForward(31 * time.Minute)

	_, err = store.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionTTLSlides(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	mr.FastForward(20 * time.Minute)
	_, err = store.Resolve(ctx, token)
	require.NoError(t, err)

	// the resolve above renewed the window
	mr.FastForward(20 * time.Minute)
	userID, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
}
