package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	accountrepo "github.com/smallbiznis/aquaalerts/internal/account/repository"
	accountservice "github.com/smallbiznis/aquaalerts/internal/account/service"
	"github.com/smallbiznis/aquaalerts/internal/account/token"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	alertrepo "github.com/smallbiznis/aquaalerts/internal/alert/repository"
	alertservice "github.com/smallbiznis/aquaalerts/internal/alert/service"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	dashboarddomain "github.com/smallbiznis/aquaalerts/internal/dashboard/domain"
	"github.com/smallbiznis/aquaalerts/internal/providers/pdf"
	"github.com/smallbiznis/aquaalerts/internal/threshold"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	usagerepo "github.com/smallbiznis/aquaalerts/internal/usage/repository"
	usageservice "github.com/smallbiznis/aquaalerts/internal/usage/service"
	"github.com/smallbiznis/aquaalerts/internal/usage/window"
	"github.com/smallbiznis/aquaalerts/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type reportStub struct {
	got pdf.UsageReport
}

func (r *reportStub) RenderMonthlyUsage(ctx context.Context, report pdf.UsageReport) ([]byte, error) {
	r.got = report
	return []byte("%PDF-stub"), nil
}

type fixture struct {
	svc      dashboarddomain.Service
	accounts accountdomain.Service
	usage    usagedomain.Service
	reports  *reportStub
}

// countingUsage records how often the dashboard reaches into usage storage.
type countingUsage struct {
	usagedomain.Service
	listAll    int
	statistics int
}

func (c *countingUsage) ListAll(ctx context.Context, ownerID string) ([]usagedomain.UsageRecord, error) {
	c.listAll++
	return c.Service.ListAll(ctx, ownerID)
}

func (c *countingUsage) Statistics(ctx context.Context, ownerID string) (*usagedomain.Statistics, error) {
	c.statistics++
	return c.Service.Statistics(ctx, ownerID)
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn, err := db.NewIsolatedTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&accountdomain.Account{}, &usagedomain.UsageRecord{}, &alertdomain.Alert{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	clk := clock.NewFakeClock(testNow)
	cal := window.NewCalendar(time.UTC)

	alerts := alertservice.New(alertservice.Params{DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: alertrepo.Provide()})
	usage := usageservice.New(usageservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Calendar: cal,
		Repo: usagerepo.Provide(), Alerts: alerts,
	})
	accounts := accountservice.New(accountservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk,
		Config: config.Config{DefaultDailyThreshold: 200},
		Repo:   accountrepo.Provide(),
		Tokens: token.New("secret", time.Hour, clk),
		Usage:  usage,
		Alerts: alerts,
	})
	reports := &reportStub{}

	svc := New(Params{
		Log: zap.NewNop(), Clock: clk, Calendar: cal,
		Accounts: accounts, Usage: usage, Alerts: alerts, Reports: reports,
	})
	return fixture{svc: svc, accounts: accounts, usage: usage, reports: reports}
}

func (f fixture) account(t *testing.T, email string) *accountdomain.Account {
	t.Helper()
	account, err := f.accounts.Register(context.Background(), accountdomain.RegisterRequest{
		Name: "Ayu Lestari", Email: email, Password: "secret-pass",
	})
	require.NoError(t, err)
	return account
}

func (f fixture) record(t *testing.T, account *accountdomain.Account, daysAgo int, amount float64) {
	t.Helper()
	_, err := f.usage.Upsert(context.Background(), usagedomain.UpsertRequest{
		OwnerID:   account.ID.String(),
		Day:       testNow.AddDate(0, 0, -daysAgo),
		Amount:    amount,
		Threshold: account.DailyThreshold,
	})
	require.NoError(t, err)
}

func TestForOwner(t *testing.T) {
	f := setup(t)
	account := f.account(t, "ayu@example.com")
	f.record(t, account, 2, 100)
	f.record(t, account, 1, 150)
	f.record(t, account, 0, 250)

	snap, err := f.svc.ForOwner(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, snap.Usage, 3)
	assert.True(t, snap.Usage[0].Day.Before(snap.Usage[2].Day))
	assert.Equal(t, 250.0, snap.Statistics.Today)
	assert.Equal(t, 500.0, snap.Statistics.Weekly)
	assert.Equal(t, threshold.BandExceeded, snap.Bands.Today)
	assert.Equal(t, threshold.BandGood, snap.Bands.Weekly)
	// average 166.67 is above 80% of 200
	require.Len(t, snap.Tips, 5)
	assert.Contains(t, snap.Tips[0], "approaching your threshold")
	assert.Nil(t, snap.User)
}

func TestForAdminIncludesAlertsAndUser(t *testing.T) {
	f := setup(t)
	account := f.account(t, "ayu@example.com")
	f.record(t, account, 0, 250)

	snap, err := f.svc.ForAdmin(context.Background(), account.ID.String())
	require.NoError(t, err)
	require.NotNil(t, snap.User)
	assert.Equal(t, account.ID, snap.User.ID)
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, alertdomain.KindThresholdExceeded, snap.Alerts[0].Kind)

	_, err = f.svc.ForAdmin(context.Background(), "98765")
	assert.ErrorIs(t, err, dashboarddomain.ErrNotFound)
}

func TestListUsersSkipsAdmins(t *testing.T) {
	f := setup(t)
	user := f.account(t, "ayu@example.com")
	f.record(t, user, 0, 80)
	_, err := f.accounts.EnsureAdmin(context.Background(), accountdomain.RegisterRequest{
		Name: "Root", Email: "root@example.com", Password: "secret-pass",
	})
	require.NoError(t, err)

	users, err := f.svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)
	assert.Equal(t, 80.0, users[0].Statistics.Today)
}

func TestMonthlyReport(t *testing.T) {
	f := setup(t)
	account := f.account(t, "ayu@example.com")
	f.record(t, account, 20, 300) // September, excluded
	f.record(t, account, 2, 100)
	f.record(t, account, 1, 210)

	out, name, err := f.svc.MonthlyReport(context.Background(), account, testNow)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-stub"), out)
	assert.Equal(t, "aquaalerts-ayu-lestari-2026-10.pdf", name)

	got := f.reports.got
	require.Len(t, got.Days, 2)
	assert.Equal(t, 310.0, got.Total)
	assert.Equal(t, 155.0, got.Average)
	assert.Equal(t, 1, got.DaysOver)
	assert.Equal(t, "exceeded", got.Days[1].Band)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), got.Month)
}

func TestForOwnerLoadsUsageOnce(t *testing.T) {
	f := setup(t)
	account := f.account(t, "sekar@example.com")
	f.record(t, account, 8, 40)
	f.record(t, account, 3, 60)
	f.record(t, account, 0, 120)

	counting := &countingUsage{Service: f.usage}
	svc := New(Params{
		Log: zap.NewNop(), Clock: clock.NewFakeClock(testNow), Calendar: window.NewCalendar(time.UTC),
		Accounts: f.accounts, Usage: counting, Reports: f.reports,
	})

	snap, err := svc.ForOwner(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.listAll)
	assert.Zero(t, counting.statistics)

	want, err := f.usage.Statistics(context.Background(), account.ID.String())
	require.NoError(t, err)
	assert.Equal(t, *want, snap.Statistics)
	assert.Equal(t, 120.0, snap.Statistics.Today)
	assert.Equal(t, 180.0, snap.Statistics.Weekly)
	assert.Equal(t, 220.0, snap.Statistics.Monthly)
}
