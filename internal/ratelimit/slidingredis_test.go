package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlidingAllowWindow(t *testing.T) {
	client, mr := newRedis(t)
	limiter := Sliding{Client: client, Prefix: "test:"}
	ctx := context.Background()
	window := 2 * time.Second
	max := 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "key", window, max)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, max-(i+1), remaining)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	mr.FastForward(window)

	allowed, _, _, err = limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestFixedAllowWindow(t *testing.T) {
	client, _ := newRedis(t)
	limiter, err := NewFixed(client, "fixed")
	require.NoError(t, err)

	allowed, remaining, reset, err := limiter.Allow(context.Background(), "key", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)
	require.True(t, reset.After(time.Now()))

	_, _, _, err = limiter.Allow(context.Background(), "key", time.Minute, 2)
	require.NoError(t, err)
	allowed, _, _, err = limiter.Allow(context.Background(), "key", time.Minute, 2)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestDisabledLimitersAllow(t *testing.T) {
	allowed, _, _, err := Sliding{}.Allow(context.Background(), "k", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, _, _, err = Fixed{}.Allow(context.Background(), "k", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}
