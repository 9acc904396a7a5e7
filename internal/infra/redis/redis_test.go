package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stayhub/internal/app/policies"
	domainauth "stayhub/internal/domain/auth"
)

func TestSessionEncodingKeepsPrincipal(t *testing.T) {
	session := &domainauth.Session{
		Token:     "tok",
		UserID:    "user-1",
		IsHost:    true,
		CreatedAt: time.Date(2027, 1, 1, 10, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2027, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	data, err := encodeSession(session)
	require.NoError(t, err)

	got, err := decodeSession("tok", data)
	require.NoError(t, err)
	require.Equal(t, session, got)
	require.Equal(t, "user-1", got.Principal().ID)
	require.True(t, got.Principal().IsHost)
}

// The tests below need a live server and run only when STAYHUB_TEST_REDIS_ADDR is set.
func liveClient(t *testing.T) *SessionStore {
	t.Helper()
	addr := os.Getenv("STAYHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STAYHUB_TEST_REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client)
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	store := liveClient(t)
	locker := NewLocker(store.client, time.Second, 100*time.Millisecond)
	ctx := context.Background()
	key := "test:" + t.Name()

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, key)
	require.ErrorIs(t, err, policies.ErrLockTimeout)

	require.NoError(t, release(ctx))
	again, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := liveClient(t)
	ctx := context.Background()
	session := &domainauth.Session{
		Token:     domainauth.Token("tok-" + t.Name()),
		UserID:    "user-1",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, session.UserID, got.UserID)

	require.NoError(t, store.Delete(ctx, session.Token))
	_, err = store.Get(ctx, session.Token)
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}
