package domain

import (
	"context"
	"errors"
	"time"

	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
)

type Service interface {
	SendRegisterOTP(ctx context.Context, email string) (*SendResult, error)
	VerifyRegisterOTP(ctx context.Context, req VerifyRequest) (*accountdomain.Session, error)
}

type VerifyRequest struct {
	Name     string             `json:"name"`
	Email    string             `json:"email"`
	Password string             `json:"password"`
	OTP      string             `json:"otp"`
	Role     accountdomain.Role `json:"role,omitempty"`
}

type SendResult struct {
	Email         string    `json:"email"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CorrelationID string    `json:"-"`
}

// RateLimiter reports whether another code may be sent to email.
type RateLimiter interface {
	AllowSend(ctx context.Context, email string) (bool, time.Duration, error)
}

var (
	ErrEmailRequired      = errors.New("email_required")
	ErrMissingFields      = errors.New("missing_fields")
	ErrUndeliverableEmail = errors.New("undeliverable_email")
	ErrRateLimited        = errors.New("otp_rate_limited")
	ErrDeliveryFailed     = errors.New("otp_delivery_failed")
	ErrInvalidOTP         = errors.New("invalid_otp")
)
