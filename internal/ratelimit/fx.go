package ratelimit

import (
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewOTPLimiter),
	fx.Provide(NewUsageDayLock),
	fx.Provide(func(l *UsageDayLock) usagedomain.DayLocker {
		if l == nil {
			return nil
		}
		return l
	}),
)
