package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketResultRetryAfter(t *testing.T) {
	res := bucketResult(false, 0.5, 1_000, 0.5, 3)
	assert.False(t, res.Allowed)
	assert.Equal(t, 3, res.Limit)
	assert.Equal(t, time.Second, res.RetryAfter)
	assert.Equal(t, time.UnixMilli(1_000).Add(time.Second), res.ResetTime)

	ok := bucketResult(true, 2, 1_000, 1, 3)
	assert.True(t, ok.Allowed)
	assert.Equal(t, 2, ok.Remaining)
	assert.Zero(t, ok.RetryAfter)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 12*time.Second, defaultBucketTTL(0.5, 3))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
}

func TestCastHelpers(t *testing.T) {
	assert.EqualValues(t, 1, castToInt(int64(1)))
	assert.EqualValues(t, 7, castToInt("7"))
	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Equal(t, 0.0, castToFloat(nil))
}

func TestUsageDayKey(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	day := time.Date(2026, 10, 14, 17, 0, 0, 0, time.UTC) // midnight of the 15th at UTC+7
	assert.Equal(t, "aquaalerts:lock:usage:42:2026-10-15", usageDayKey(snowflake.ID(42), day, loc))
}

func TestDisabledComponentsAreNoops(t *testing.T) {
	ctx := context.Background()

	var lock *UsageDayLock
	unlock, err := lock.LockDay(ctx, 1, time.Now())
	require.NoError(t, err)
	unlock()

	var limiter *OTPLimiter
	assert.False(t, limiter.Enabled())
	res, err := limiter.Allow(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	var locker *Locker
	_, err = locker.Acquire(ctx, "k", time.Second, 0)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, locker.Release(ctx, Lease{Key: "k"}))

	assert.Nil(t, NewTokenBucket(nil))
}

func TestLockerRejectsBadArgumentsBeforeDialing(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "", time.Second, 0)
	assert.ErrorIs(t, err, ErrEmptyLockKey)

	_, err = locker.Acquire(ctx, "aquaalerts:lock:usage:1:2026-10-15", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidLockTTL)

	assert.NoError(t, locker.Release(ctx, Lease{}))
	assert.Nil(t, NewLocker(nil))
}
