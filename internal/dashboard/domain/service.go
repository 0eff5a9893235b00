package domain

import (
	"context"
	"errors"
	"time"

	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	"github.com/smallbiznis/aquaalerts/internal/providers/pdf"
	"github.com/smallbiznis/aquaalerts/internal/threshold"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
)

type Service interface {
	// ForOwner is the dashboard an account sees for itself.
	ForOwner(ctx context.Context, account *accountdomain.Account) (*Snapshot, error)
	// ForAdmin is the same view of another account, with its active alerts.
	ForAdmin(ctx context.Context, accountID string) (*Snapshot, error)
	ListUsers(ctx context.Context) ([]UserSummary, error)
	MonthlyReport(ctx context.Context, account *accountdomain.Account, month time.Time) ([]byte, string, error)
}

type Snapshot struct {
	Usage      []usagedomain.UsageRecord `json:"usage"`
	Statistics usagedomain.Statistics    `json:"statistics"`
	Bands      threshold.Bands           `json:"bands"`
	Tips       []string                  `json:"tips"`
	Alerts     []alertdomain.Alert       `json:"alerts,omitempty"`
	User       *accountdomain.Account    `json:"user,omitempty"`
}

type UserSummary struct {
	*accountdomain.Account
	Statistics usagedomain.Statistics `json:"statistics"`
}

// ReportBuilder renders a month of usage into a document.
type ReportBuilder interface {
	RenderMonthlyUsage(ctx context.Context, report pdf.UsageReport) ([]byte, error)
}

var ErrNotFound = errors.New("dashboard_account_not_found")
