package redisadapter_test

import (
	"context"
	"os"
	"testing"
	"time"

	redisadapter "pollbooth/contexts/identity-access/account-service/adapters/redis"
	"pollbooth/contexts/identity-access/account-service/domain/entities"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Runs only against a live server named by REDIS_TEST_ADDR.
func TestSessionStoreAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := redisadapter.NewSessionStore(client, "pollbooth:test:session:", nil)
	now := time.Now().UTC()
	session := entities.Session{
		Token:     uuid.NewString(),
		UserID:    "user-1",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}

	require.NoError(t, store.CreateSession(ctx, session))
	loaded, err := store.GetSession(ctx, session.Token, now)
	require.NoError(t, err)
	require.Equal(t, "user-1", loaded.UserID)

	_, err = store.GetSession(ctx, session.Token, now.Add(2*time.Minute))
	require.ErrorIs(t, err, domainerrors.ErrSessionNotFound)

	deleted, err := store.DeleteSession(ctx, session.Token)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = store.GetSession(ctx, session.Token, now)
	require.ErrorIs(t, err, domainerrors.ErrSessionNotFound)
}

func TestCreateSessionRejectsNonPositiveLifetime(t *testing.T) {
	// Nothing listens here; the lifetime check fails before any round trip.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	store := redisadapter.NewSessionStore(client, "", nil)

	created := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	for name, expires := range map[string]time.Time{
		"equal":  created,
		"before": created.Add(-time.Second),
	} {
		t.Run(name, func(t *testing.T) {
			err := store.CreateSession(context.Background(), entities.Session{
				Token:     uuid.NewString(),
				UserID:    "user-1",
				CreatedAt: created,
				ExpiresAt: expires,
			})
			require.ErrorIs(t, err, domainerrors.ErrSessionExpired)
		})
	}
}

// A session stamped by a clock far in the past still gets its full lifetime
// as TTL instead of being dropped.
func TestSessionStoreUsesSessionClockForTTL(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := redisadapter.NewSessionStore(client, "pollbooth:test:session:", nil)
	created := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	session := entities.Session{
		Token:     uuid.NewString(),
		UserID:    "user-2",
		CreatedAt: created,
		ExpiresAt: created.Add(time.Minute),
	}
	require.NoError(t, store.CreateSession(ctx, session))
	t.Cleanup(func() { _, _ = store.DeleteSession(ctx, session.Token) })

	ttl, err := client.TTL(ctx, "pollbooth:test:session:"+session.Token).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)

	loaded, err := store.GetSession(ctx, session.Token, created.Add(30*time.Second))
	require.NoError(t, err)
	require.Equal(t, "user-2", loaded.UserID)
}
