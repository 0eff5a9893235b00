package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	"github.com/smallbiznis/aquaalerts/internal/emailvalidation"
	"github.com/smallbiznis/aquaalerts/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/aquaalerts/internal/observability/metrics"
	otpdomain "github.com/smallbiznis/aquaalerts/internal/otp/domain"
	"github.com/smallbiznis/aquaalerts/internal/providers/email"
	"github.com/smallbiznis/aquaalerts/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultTTL         = 10 * time.Minute
	defaultMaxAttempts = 5
)

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Store     otpdomain.Store
	Accounts  accountdomain.Service
	Validator emailvalidation.Validator
	Email     email.Provider
	Limiter   otpdomain.RateLimiter `optional:"true"`
	Metrics   *obsmetrics.Metrics   `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	store     otpdomain.Store
	accounts  accountdomain.Service
	validator emailvalidation.Validator
	email     email.Provider
	limiter   otpdomain.RateLimiter
	metrics   *obsmetrics.Metrics

	ttl         time.Duration
	maxAttempts int
}

func New(p Params) otpdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	ttl := p.Config.OTP.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	maxAttempts := p.Config.OTP.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Service{
		log:       p.Log.Named("otp.service"),
		genID:     p.GenID,
		clock:     clk,
		store:     p.Store,
		accounts:  p.Accounts,
		validator: p.Validator,
		email:     p.Email,
		limiter:   p.Limiter,
		metrics:   p.Metrics,

		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

func (s *Service) SendRegisterOTP(ctx context.Context, address string) (*otpdomain.SendResult, error) {
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	log := logger.WithContext(ctx, s.log)

	if strings.TrimSpace(address) == "" {
		return nil, otpdomain.ErrEmailRequired
	}
	normalized, err := accountdomain.NormalizeEmail(address)
	if err != nil {
		return nil, err
	}

	if res := s.validator.Validate(ctx, normalized); !res.Valid {
		log.Info("otp refused, email failed validation",
			zap.String("reason", res.Reason),
			zap.String("source", res.Source),
		)
		s.metrics.RecordOTPSent(ctx, "rejected")
		return nil, otpdomain.ErrUndeliverableEmail
	}

	existing, err := s.accounts.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, accountdomain.ErrAccountExists
	}

	if s.limiter != nil {
		allowed, retryAfter, err := s.limiter.AllowSend(ctx, normalized)
		if err != nil {
			log.Warn("otp rate limit check failed", zap.Error(err))
		} else if !allowed {
			log.Info("otp send throttled", zap.Duration("retry_after", retryAfter))
			s.metrics.RecordOTPSent(ctx, "throttled")
			return nil, otpdomain.ErrRateLimited
		}
	}

	code, err := newCode()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	otp := &otpdomain.OTP{
		ID:        s.genID.Generate(),
		Email:     normalized,
		Purpose:   otpdomain.PurposeRegister,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Replace(ctx, otp); err != nil {
		return nil, err
	}

	err = s.email.SendTemplate(ctx, []string{normalized}, email.TemplateVerifyEmail, map[string]any{
		"code":               code,
		"expires_in_minutes": int(s.ttl.Minutes()),
		"correlation_id":     cid,
	})
	if err != nil {
		log.Error("send verification email failed", zap.Error(err))
		if delErr := s.store.Delete(ctx, normalized, otpdomain.PurposeRegister); delErr != nil {
			log.Warn("discard undelivered otp failed", zap.Error(delErr))
		}
		s.metrics.RecordOTPSent(ctx, "failed")
		return nil, otpdomain.ErrDeliveryFailed
	}

	s.metrics.RecordOTPSent(ctx, "sent")
	log.Info("registration otp sent", zap.Time("expires_at", otp.ExpiresAt))
	return &otpdomain.SendResult{Email: normalized, ExpiresAt: otp.ExpiresAt, CorrelationID: cid}, nil
}

func (s *Service) VerifyRegisterOTP(ctx context.Context, req otpdomain.VerifyRequest) (*accountdomain.Session, error) {
	log := logger.WithContext(ctx, s.log)

	if strings.TrimSpace(req.Name) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		req.Password == "" ||
		strings.TrimSpace(req.OTP) == "" {
		return nil, otpdomain.ErrMissingFields
	}
	normalized, err := accountdomain.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	otp, err := s.store.FindActive(ctx, normalized, otpdomain.PurposeRegister, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if otp == nil {
		s.metrics.RecordOTPVerified(ctx, "invalid")
		return nil, otpdomain.ErrInvalidOTP
	}

	if otp.Attempts >= s.maxAttempts || !codesMatch(otp.Code, strings.TrimSpace(req.OTP)) {
		s.recordFailedAttempt(ctx, log, otp)
		return nil, otpdomain.ErrInvalidOTP
	}

	account, err := s.accounts.Register(ctx, accountdomain.RegisterRequest{
		Name:     req.Name,
		Email:    normalized,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		if errors.Is(err, accountdomain.ErrAccountExists) {
			s.metrics.RecordOTPVerified(ctx, "exists")
		}
		return nil, err
	}

	if err := s.store.Delete(ctx, normalized, otpdomain.PurposeRegister); err != nil {
		log.Warn("delete consumed otp failed", zap.Error(err))
	}
	s.metrics.RecordOTPVerified(ctx, "verified")
	log.Info("registration verified", zap.String("account_id", account.ID.String()))

	return s.accounts.IssueSession(ctx, account)
}

// recordFailedAttempt burns the code once the attempt budget is spent.
func (s *Service) recordFailedAttempt(ctx context.Context, log *zap.Logger, otp *otpdomain.OTP) {
	s.metrics.RecordOTPVerified(ctx, "mismatch")

	attempts, err := s.store.IncrementAttempts(ctx, otp)
	if err != nil {
		log.Warn("record otp attempt failed", zap.Error(err))
		return
	}
	if attempts < s.maxAttempts {
		return
	}
	if err := s.store.Delete(ctx, otp.Email, otp.Purpose); err != nil {
		log.Warn("discard exhausted otp failed", zap.Error(err))
		return
	}
	log.Info("otp discarded after too many attempts", zap.Int("attempts", attempts))
}

// Sweep removes expired codes. Stores with native expiry report zero.
func Sweep(ctx context.Context, store otpdomain.Store, clk clock.Clock) (int64, error) {
	return store.DeleteExpired(ctx, clk.Now().UTC())
}
