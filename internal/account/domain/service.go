package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Account, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	IssueSession(ctx context.Context, account *Account) (*Session, error)
	Authenticate(ctx context.Context, token string) (*Account, error)
	Get(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Account, error)
	Delete(ctx context.Context, id string) error
	ListByRole(ctx context.Context, role Role) ([]*Account, error)
	UpdateThreshold(ctx context.Context, id string, threshold float64) (*Account, error)
	EnsureAdmin(ctx context.Context, req RegisterRequest) (*Account, error)
}

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	ID             string
	Name           *string  `json:"name,omitempty"`
	Email          *string  `json:"email,omitempty"`
	DailyThreshold *float64 `json:"dailyThreshold,omitempty"`
	Password       *string  `json:"password,omitempty"`
}

// Session is a signed bearer token and the account it belongs to.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Account   *Account  `json:"user"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidCredentials = errors.New("credentials_rejected")
	ErrNotVerified        = errors.New("email_not_verified")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("account_not_found")
	ErrAccountExists      = errors.New("account_exists")
)
