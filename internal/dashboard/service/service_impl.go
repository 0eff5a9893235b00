package service

import (
	"context"
	"errors"
	"time"

	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	dashboarddomain "github.com/smallbiznis/aquaalerts/internal/dashboard/domain"
	"github.com/smallbiznis/aquaalerts/internal/providers/pdf"
	"github.com/smallbiznis/aquaalerts/internal/threshold"
	"github.com/smallbiznis/aquaalerts/internal/tips"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	"github.com/smallbiznis/aquaalerts/internal/usage/window"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Calendar window.Calendar
	Accounts accountdomain.Service
	Usage    usagedomain.Service
	Alerts   alertdomain.Service
	Reports  dashboarddomain.ReportBuilder
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	calendar window.Calendar
	accounts accountdomain.Service
	usage    usagedomain.Service
	alerts   alertdomain.Service
	reports  dashboarddomain.ReportBuilder
}

func New(p Params) dashboarddomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		log:      p.Log.Named("dashboard.service"),
		clock:    clk,
		calendar: p.Calendar,
		accounts: p.Accounts,
		usage:    p.Usage,
		alerts:   p.Alerts,
		reports:  p.Reports,
	}
}

func (s *Service) ForOwner(ctx context.Context, account *accountdomain.Account) (*dashboarddomain.Snapshot, error) {
	if account == nil {
		return nil, dashboarddomain.ErrNotFound
	}
	ownerID := account.ID.String()

	records, err := s.usage.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats := window.Compute(records, s.calendar.Windows(s.clock.Now()))
	bands, err := threshold.ClassifyAll(stats.Today, stats.Weekly, stats.Monthly, account.DailyThreshold)
	if err != nil {
		return nil, err
	}
	advice, err := tips.Generate(tips.Average(amounts(records)), account.DailyThreshold)
	if err != nil {
		return nil, err
	}

	return &dashboarddomain.Snapshot{
		Usage:      records,
		Statistics: stats,
		Bands:      bands,
		Tips:       advice,
	}, nil
}

func (s *Service) ForAdmin(ctx context.Context, accountID string) (*dashboarddomain.Snapshot, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, accountdomain.ErrNotFound) {
			return nil, dashboarddomain.ErrNotFound
		}
		return nil, err
	}

	snapshot, err := s.ForOwner(ctx, account)
	if err != nil {
		return nil, err
	}
	active, err := s.alerts.ListActive(ctx, accountID)
	if err != nil {
		return nil, err
	}
	snapshot.Alerts = active
	snapshot.User = account
	return snapshot, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]dashboarddomain.UserSummary, error) {
	accounts, err := s.accounts.ListByRole(ctx, accountdomain.RoleUser)
	if err != nil {
		return nil, err
	}

	out := make([]dashboarddomain.UserSummary, 0, len(accounts))
	for _, account := range accounts {
		stats, err := s.usage.Statistics(ctx, account.ID.String())
		if err != nil {
			return nil, err
		}
		out = append(out, dashboarddomain.UserSummary{Account: account, Statistics: *stats})
	}
	return out, nil
}

// MonthlyReport renders the PDF for the calendar month containing month and
// returns it with its download filename.
func (s *Service) MonthlyReport(ctx context.Context, account *accountdomain.Account, month time.Time) ([]byte, string, error) {
	if account == nil {
		return nil, "", dashboarddomain.ErrNotFound
	}
	records, err := s.usage.ListMonth(ctx, account.ID.String(), month)
	if err != nil {
		return nil, "", err
	}

	loc := s.calendar.Location()
	local := month.In(loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)

	report := pdf.UsageReport{
		OwnerName:      account.Name,
		OwnerEmail:     account.Email,
		Month:          monthStart,
		DailyThreshold: account.DailyThreshold,
		Days:           make([]pdf.ReportDay, 0, len(records)),
		GeneratedAt:    s.clock.Now().In(loc),
	}
	for _, record := range records {
		band, err := threshold.Classify(record.AmountLiters, account.DailyThreshold)
		if err != nil {
			return nil, "", err
		}
		if band == threshold.BandExceeded {
			report.DaysOver++
		}
		report.Total += record.AmountLiters
		report.Days = append(report.Days, pdf.ReportDay{
			Day:    record.Day.In(loc),
			Liters: record.AmountLiters,
			Band:   string(band),
		})
	}
	report.Average = tips.Average(amounts(records))
	if report.Tips, err = tips.Generate(report.Average, account.DailyThreshold); err != nil {
		return nil, "", err
	}

	out, err := s.reports.RenderMonthlyUsage(ctx, report)
	if err != nil {
		return nil, "", err
	}
	s.log.Debug("monthly report rendered",
		zap.String("owner_id", account.ID.String()),
		zap.String("month", monthStart.Format("2006-01")),
		zap.Int("days", len(report.Days)),
	)
	return out, pdf.Filename(account.Name, monthStart), nil
}

func amounts(records []usagedomain.UsageRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		out = append(out, r.AmountLiters)
	}
	return out
}
