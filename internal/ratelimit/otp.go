package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/aquaalerts/internal/config"
	obsmetrics "github.com/smallbiznis/aquaalerts/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	keyOTPSend = "aquaalerts:ratelimit:otp:%s"

	endpointOTPSend = "otp_send"
)

// OTPLimiter throttles verification emails per address.
type OTPLimiter struct {
	bucket  *TokenBucket
	rate    float64
	burst   int
	log     *zap.Logger
	metrics *obsmetrics.Metrics
}

func NewOTPLimiter(client *redis.Client, cfg config.Config, log *zap.Logger, metrics *obsmetrics.Metrics) *OTPLimiter {
	if client == nil {
		return nil
	}
	if cfg.RateLimit.OTPRate <= 0 || cfg.RateLimit.OTPBurst <= 0 {
		log.Warn("otp rate limit disabled: rate and burst must be positive")
		return nil
	}
	return &OTPLimiter{
		bucket:  NewTokenBucket(client),
		rate:    cfg.RateLimit.OTPRate,
		burst:   cfg.RateLimit.OTPBurst,
		log:     log.Named("ratelimit.otp"),
		metrics: metrics,
	}
}

func (l *OTPLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow fails open when redis errors so that registration keeps working.
func (l *OTPLimiter) Allow(ctx context.Context, email string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyOTPSend, strings.ToLower(strings.TrimSpace(email)))
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("otp rate limit check failed, allowing", zap.Error(err))
		return &RateLimitResult{Allowed: true}, nil
	}
	if res.Allowed {
		l.metrics.RecordRateLimitAllowed(ctx, endpointOTPSend)
	} else {
		l.metrics.RecordRateLimitDenied(ctx, endpointOTPSend, "bucket_empty")
	}
	return res, nil
}
