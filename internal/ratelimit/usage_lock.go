package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/aquaalerts/internal/config"
	"go.uber.org/zap"
)

const keyUsageDayLock = "aquaalerts:lock:usage:%s:%s"

// UsageDayLock serializes writes to the same owner and day across instances.
type UsageDayLock struct {
	locker *Locker
	ttl    time.Duration
	wait   time.Duration
	loc    *time.Location
	log    *zap.Logger
}

func NewUsageDayLock(client *redis.Client, cfg config.Config, log *zap.Logger) *UsageDayLock {
	if client == nil {
		return nil
	}
	ttl := cfg.RateLimit.UsageLockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &UsageDayLock{
		locker: NewLocker(client),
		ttl:    ttl,
		wait:   cfg.RateLimit.UsageLockWait,
		loc:    cfg.Location(),
		log:    log.Named("ratelimit.usage_lock"),
	}
}

func usageDayKey(ownerID snowflake.ID, day time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf(keyUsageDayLock, ownerID.String(), day.In(loc).Format("2006-01-02"))
}

// LockDay waits briefly for a concurrent writer of the same day and returns
// ErrLockHeld when it does not finish in time. A nil receiver hands back a
// no-op unlock.
func (l *UsageDayLock) LockDay(ctx context.Context, ownerID snowflake.ID, day time.Time) (func(), error) {
	if l == nil || l.locker == nil {
		return func() {}, nil
	}
	lease, err := l.locker.Acquire(ctx, usageDayKey(ownerID, day, l.loc), l.ttl, l.wait)
	if err != nil {
		return nil, err
	}
	return func() {
		// Released on a fresh context so a cancelled request still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.locker.Release(releaseCtx, lease); err != nil {
			l.log.Warn("release usage lock failed", zap.String("key", lease.Key), zap.Error(err))
		}
	}, nil
}
