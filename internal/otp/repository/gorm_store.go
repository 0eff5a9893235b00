package repository

import (
	"context"
	"time"

	otpdomain "github.com/smallbiznis/aquaalerts/internal/otp/domain"
	"github.com/smallbiznis/aquaalerts/pkg/db/option"
	"github.com/smallbiznis/aquaalerts/pkg/repository"
	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) otpdomain.Store {
	return &gormStore{db: db}
}

func otps(db *gorm.DB) repository.Repository[otpdomain.OTP] {
	return repository.ProvideStore[otpdomain.OTP](db)
}

func (s *gormStore) Replace(ctx context.Context, otp *otpdomain.OTP) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := otps(tx).Delete(ctx, &otpdomain.OTP{Email: otp.Email, Purpose: otp.Purpose}); err != nil {
			return err
		}
		return otps(tx).Create(ctx, otp)
	})
}

func (s *gormStore) FindActive(ctx context.Context, email string, purpose otpdomain.Purpose, now time.Time) (*otpdomain.OTP, error) {
	return otps(s.db).FindOne(ctx, &otpdomain.OTP{Email: email, Purpose: purpose},
		option.WithWhere("expires_at > ?", now),
		option.WithSortBy("created_at", "desc"),
	)
}

func (s *gormStore) IncrementAttempts(ctx context.Context, otp *otpdomain.OTP) (int, error) {
	store := otps(s.db)
	if _, err := store.UpdateColumns(ctx, &otpdomain.OTP{ID: otp.ID}, map[string]any{
		"attempts": gorm.Expr("attempts + 1"),
	}); err != nil {
		return 0, err
	}
	current, err := store.FindOne(ctx, &otpdomain.OTP{ID: otp.ID})
	if err != nil {
		return 0, err
	}
	if current != nil {
		otp.Attempts = current.Attempts
	}
	return otp.Attempts, nil
}

func (s *gormStore) Delete(ctx context.Context, email string, purpose otpdomain.Purpose) error {
	_, err := otps(s.db).Delete(ctx, &otpdomain.OTP{Email: email, Purpose: purpose})
	return err
}

func (s *gormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return otps(s.db).Delete(ctx, nil, option.WithWhere("expires_at <= ?", now))
}
