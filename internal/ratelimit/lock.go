package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// The token check keeps a writer whose lease expired from deleting a lock
// that a later writer now holds.
const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const lockRetryInterval = 25 * time.Millisecond

var (
	ErrLockHeld          = errors.New("lock_held")
	ErrLockNotConfigured = errors.New("lock_not_configured")
	ErrEmptyLockKey      = errors.New("lock_key_empty")
	ErrInvalidLockTTL    = errors.New("lock_ttl_invalid")
)

// Lease is a held lock. Release is a no-op on a zero Lease.
type Lease struct {
	Key   string
	token string
}

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// Acquire takes key for ttl, retrying until wait has passed. It returns
// ErrLockHeld when the key is still taken at the deadline.
func (l *Locker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lease, error) {
	if l == nil || l.client == nil {
		return Lease{}, ErrLockNotConfigured
	}
	if key == "" {
		return Lease{}, ErrEmptyLockKey
	}
	if ttl <= 0 {
		return Lease{}, ErrInvalidLockTTL
	}

	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return Lease{}, err
		}
		if ok {
			return Lease{Key: key, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return Lease{}, ErrLockHeld
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Lease{}, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) Release(ctx context.Context, lease Lease) error {
	if l == nil || l.client == nil {
		return nil
	}
	if lease.Key == "" || lease.token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{lease.Key}, lease.token).Err()
}
