package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/galette-community/plugin-stripe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewLimiterDisabled(t *testing.T) {
	limiter, err := NewLimiter(nil, config.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())
}

func TestNewLimiterRejectsBadRates(t *testing.T) {
	cfg := config.Config{Redis: config.RedisConfig{Enabled: true, Addr: "localhost:6379"}}
	_, err := NewLimiter(nil, cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNilLimiterAllows(t *testing.T) {
	var limiter *Limiter
	ctx := context.Background()

	res, err := limiter.AllowCheckout(ctx, "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	token, ok, err := limiter.TryLockIntent(ctx, "pi_1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, limiter.ReleaseIntent(ctx, "pi_1", token))

	token, ok, err = limiter.TryLockJob(ctx, "stale_history", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, limiter.ReleaseJob(ctx, "stale_history", token))
}

func TestNilLockerAndBucket(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
	assert.Nil(t, NewTokenBucket(nil))

	var locker *Locker
	_, _, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "stripe:webhook:intent:pi_1", IntentKey(" pi_1 "))
	assert.Equal(t, "stripe:checkout:client:10.0.0.1", CheckoutKey("10.0.0.1"))
	assert.Equal(t, "stripe:scheduler:job:stale_history", JobKey("stale_history"))
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, retryAfter(true, 0, 1))
	assert.Equal(t, 2*time.Second, retryAfter(false, 0, 0.5))
	assert.Equal(t, 20*time.Second, defaultBucketTTL(1, 10))
	assert.Equal(t, 3.5, castToFloat("3.5"))
	assert.EqualValues(t, 1, castToInt(int64(1)))
}
