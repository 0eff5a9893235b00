package domain

import (
	"context"
	"time"
)

// Store keeps at most one live code per email and purpose.
type Store interface {
	// Replace drops any previous code for the same email and purpose.
	Replace(ctx context.Context, otp *OTP) error
	FindActive(ctx context.Context, email string, purpose Purpose, now time.Time) (*OTP, error)
	IncrementAttempts(ctx context.Context, otp *OTP) (int, error)
	Delete(ctx context.Context, email string, purpose Purpose) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
