package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	otpdomain "github.com/smallbiznis/aquaalerts/internal/otp/domain"
)

const keyOTP = "aquaalerts:otp:%s:%s"

// redisStore keeps each code in a hash that expires with the code, so
// expired entries need no sweeping.
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) otpdomain.Store {
	return &redisStore{client: client}
}

func otpKey(email string, purpose otpdomain.Purpose) string {
	return fmt.Sprintf(keyOTP, purpose, email)
}

func (s *redisStore) Replace(ctx context.Context, otp *otpdomain.OTP) error {
	key := otpKey(otp.Email, otp.Purpose)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, encodeOTP(otp))
		pipe.PExpireAt(ctx, key, otp.ExpiresAt)
		return nil
	})
	return err
}

func (s *redisStore) FindActive(ctx context.Context, email string, purpose otpdomain.Purpose, now time.Time) (*otpdomain.OTP, error) {
	fields, err := s.client.HGetAll(ctx, otpKey(email, purpose)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	otp, err := decodeOTP(email, purpose, fields)
	if err != nil {
		return nil, err
	}
	if otp.Expired(now) {
		return nil, nil
	}
	return otp, nil
}

func (s *redisStore) IncrementAttempts(ctx context.Context, otp *otpdomain.OTP) (int, error) {
	attempts, err := s.client.HIncrBy(ctx, otpKey(otp.Email, otp.Purpose), "attempts", 1).Result()
	if err != nil {
		return 0, err
	}
	otp.Attempts = int(attempts)
	return otp.Attempts, nil
}

func (s *redisStore) Delete(ctx context.Context, email string, purpose otpdomain.Purpose) error {
	return s.client.Del(ctx, otpKey(email, purpose)).Err()
}

func (s *redisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func encodeOTP(otp *otpdomain.OTP) map[string]any {
	return map[string]any{
		"id":         otp.ID.String(),
		"code":       otp.Code,
		"attempts":   otp.Attempts,
		"expires_at": otp.ExpiresAt.UnixMilli(),
		"created_at": otp.CreatedAt.UnixMilli(),
	}
}

func decodeOTP(email string, purpose otpdomain.Purpose, fields map[string]string) (*otpdomain.OTP, error) {
	id, err := snowflake.ParseString(fields["id"])
	if err != nil {
		return nil, fmt.Errorf("otp: decode id: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("otp: decode attempts: %w", err)
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("otp: decode expires_at: %w", err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("otp: decode created_at: %w", err)
	}
	return &otpdomain.OTP{
		ID:        id,
		Email:     email,
		Purpose:   purpose,
		Code:      fields["code"],
		Attempts:  attempts,
		ExpiresAt: time.UnixMilli(expires).UTC(),
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}
