package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterPerMinute(t *testing.T) {
	rl := NewRateLimiter(2, 0, 0, 0)

	require.NoError(t, rl.Allow("client-a", 0))
	require.NoError(t, rl.Allow("client-a", 0))

	err := rl.Allow("client-a", 0)
	require.Error(t, err)

	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 2, rle.Limit)

	// Other clients are unaffected.
	assert.NoError(t, rl.Allow("client-b", 0))
}

func TestRateLimiterPerHour(t *testing.T) {
	rl := NewRateLimiter(0, 1, 0, 0)

	require.NoError(t, rl.Allow("client-a", 0))

	err := rl.Allow("client-a", 0)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "hour", rle.Type)
}

func TestRateLimiterDailyRequestQuota(t *testing.T) {
	rl := NewRateLimiter(0, 0, 3, 0)

	for range 3 {
		require.NoError(t, rl.Allow("client-a", 0))
	}

	err := rl.Allow("client-a", 0)
	var qee *QuotaExceededError
	require.ErrorAs(t, err, &qee)
	assert.Equal(t, "requests", qee.Type)
	assert.Equal(t, int64(3), qee.Limit)
	assert.Equal(t, int64(3), qee.Used)
	assert.False(t, qee.Resets.IsZero())
}

func TestRateLimiterDataQuota(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 1000)

	require.NoError(t, rl.Allow("client-a", 600))

	err := rl.Allow("client-a", 600)
	var qee *QuotaExceededError
	require.ErrorAs(t, err, &qee)
	assert.Equal(t, "data", qee.Type)
	assert.Equal(t, int64(1000), qee.Limit)
	assert.Equal(t, int64(600), qee.Used)

	// A smaller upload still fits.
	assert.NoError(t, rl.Allow("client-a", 300))
}

func TestRateLimiterZeroLimitsDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 0)
	for range 100 {
		require.NoError(t, rl.Allow("client-a", 1<<20))
	}
}

func TestRateLimitErrorMessages(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0, 0)
	require.NoError(t, rl.Allow("a", 0))
	err := rl.Allow("a", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")

	var generic error = err
	var rle *RateLimitError
	assert.True(t, errors.As(generic, &rle))
}
