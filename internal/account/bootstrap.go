package account

import (
	"context"
	"strings"

	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	"github.com/smallbiznis/aquaalerts/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// seedBootstrapAdmin creates or promotes the configured administrator on start.
func seedBootstrapAdmin(lc fx.Lifecycle, cfg config.Config, svc accountdomain.Service, log *zap.Logger) {
	email := strings.TrimSpace(cfg.Bootstrap.AdminEmail)
	if email == "" {
		return
	}
	log = log.Named("account.bootstrap")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			account, err := svc.EnsureAdmin(ctx, accountdomain.RegisterRequest{
				Name:     cfg.Bootstrap.AdminName,
				Email:    email,
				Password: cfg.Bootstrap.AdminPassword,
			})
			if err != nil {
				log.Error("bootstrap admin failed", zap.Error(err))
				return err
			}
			log.Info("bootstrap admin ready", zap.String("account_id", account.ID.String()))
			return nil
		},
	})
}
