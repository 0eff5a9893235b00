package email

import (
	"context"

	"go.uber.org/zap"
)

//go:generate mockgen -source=provider.go -destination=mock_provider.go -package=email

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error
}

// NoOpProvider renders nothing and delivers nothing. It is used when SMTP
// is not configured so local registration flows keep working.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	p.log.Info("email delivery skipped", zap.Int("recipients", len(to)), zap.String("subject", subject))
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	p.log.Info("email delivery skipped", zap.Int("recipients", len(to)), zap.String("template", templateName))
	return nil
}
