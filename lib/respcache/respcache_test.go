package respcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Term string `json:"srcdb"`
	Key  string `json:"key"`
}

func setup(t *testing.T) Cache {
	db, err := OpenDB("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestSetGetRoundtrip(t *testing.T) {
	cache := setup(t)
	ctx := context.Background()

	body := []byte(`{"results":[{"crn":"12345"}]}`)
	err := cache.Set(ctx, "search", payload{Term: "202630"}, body, time.Minute)
	require.NoError(t, err)

	got, err := cache.Get(ctx, "search", payload{Term: "202630"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, body, got)
}

func TestMissIsNotFound(t *testing.T) {
	cache := setup(t)

	_, err := cache.Get(context.Background(), "search", payload{Term: "202630"}, time.Minute)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEntriesAreIndependent(t *testing.T) {
	cache := setup(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "details", payload{Term: "202630", Key: "crn:1"}, []byte("a"), time.Minute))
	require.NoError(t, cache.Set(ctx, "details", payload{Term: "202630", Key: "crn:2"}, []byte("b"), time.Minute))

	got, err := cache.Get(ctx, "details", payload{Term: "202630", Key: "crn:1"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), got)

	got, err = cache.Get(ctx, "details", payload{Term: "202630", Key: "crn:2"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []byte("b"), got)

	// same payload against another endpoint is a distinct entry
	_, err = cache.Get(ctx, "search", payload{Term: "202630", Key: "crn:1"}, time.Minute)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTTLExpiry(t *testing.T) {
	cache := setup(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "search", payload{Term: "202630"}, []byte("x"), 20*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := cache.Get(ctx, "search", payload{Term: "202630"}, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestZeroTTLIsExpired(t *testing.T) {
	cache := setup(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "search", payload{Term: "202630"}, []byte("x"), time.Minute))

	_, err := cache.Get(ctx, "search", payload{Term: "202630"}, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	cache := setup(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "search", payload{Term: "202610"}, []byte("a"), time.Minute))
	require.NoError(t, cache.Set(ctx, "search", payload{Term: "202630"}, []byte("b"), time.Minute))
	require.NoError(t, cache.Clear())

	_, err := cache.Get(ctx, "search", payload{Term: "202610"}, time.Minute)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = cache.Get(ctx, "search", payload{Term: "202630"}, time.Minute)
	require.ErrorIs(t, err, ErrNotFound)
}
