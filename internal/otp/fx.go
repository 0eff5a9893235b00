package otp

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	otpdomain "github.com/smallbiznis/aquaalerts/internal/otp/domain"
	"github.com/smallbiznis/aquaalerts/internal/otp/repository"
	"github.com/smallbiznis/aquaalerts/internal/otp/service"
	"github.com/smallbiznis/aquaalerts/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepInterval = 15 * time.Minute

var Module = fx.Module("otp.service",
	fx.Provide(provideStore),
	fx.Provide(provideLimiter),
	fx.Provide(service.New),
	fx.Invoke(runSweeper),
)

type storeParams struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Redis  *redis.Client `optional:"true"`
	Log    *zap.Logger
}

func provideStore(p storeParams) otpdomain.Store {
	if p.Config.OTP.Store == config.OTPStoreRedis && p.Redis != nil {
		p.Log.Info("otp store: redis")
		return repository.NewRedisStore(p.Redis)
	}
	return repository.NewGormStore(p.DB)
}

type limiterAdapter struct {
	limiter *ratelimit.OTPLimiter
}

func (a limiterAdapter) AllowSend(ctx context.Context, email string) (bool, time.Duration, error) {
	res, err := a.limiter.Allow(ctx, email)
	if err != nil {
		return true, 0, err
	}
	return res.Allowed, res.RetryAfter, nil
}

func provideLimiter(l *ratelimit.OTPLimiter) otpdomain.RateLimiter {
	if !l.Enabled() {
		return nil
	}
	return limiterAdapter{limiter: l}
}

func runSweeper(lc fx.Lifecycle, store otpdomain.Store, clk clock.Clock, log *zap.Logger) {
	log = log.Named("otp.sweeper")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(sweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						removed, err := service.Sweep(ctx, store, clk)
						if err != nil {
							log.Warn("sweep expired otps failed", zap.Error(err))
							continue
						}
						if removed > 0 {
							log.Debug("expired otps removed", zap.Int64("count", removed))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
