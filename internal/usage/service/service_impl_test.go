package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	alertrepo "github.com/smallbiznis/aquaalerts/internal/alert/repository"
	alertservice "github.com/smallbiznis/aquaalerts/internal/alert/service"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	"github.com/smallbiznis/aquaalerts/internal/ratelimit"
	"github.com/smallbiznis/aquaalerts/internal/threshold"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	"github.com/smallbiznis/aquaalerts/internal/usage/repository"
	"github.com/smallbiznis/aquaalerts/internal/usage/window"
	"github.com/smallbiznis/aquaalerts/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type fixedRandom struct{ values []float64 }

func (r *fixedRandom) Float64() float64 {
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = append(r.values[1:], v)
	return v
}

type lockStub struct {
	err    error
	locked int
	freed  int
}

func (l *lockStub) LockDay(ctx context.Context, ownerID snowflake.ID, day time.Time) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked++
	return func() { l.freed++ }, nil
}

type fixture struct {
	svc    usagedomain.Service
	alerts alertdomain.Service
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	cal    window.Calendar
	owner  snowflake.ID
}

func setup(t *testing.T, random usagedomain.RandomSource, locker usagedomain.DayLocker) fixture {
	t.Helper()
	return setupAt(t, window.NewCalendar(time.UTC), testNow, random, locker)
}

func setupAt(t *testing.T, cal window.Calendar, now time.Time, random usagedomain.RandomSource, locker usagedomain.DayLocker) fixture {
	t.Helper()
	conn, err := db.NewIsolatedTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&usagedomain.UsageRecord{}, &alertdomain.Alert{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(now)

	alerts := alertservice.New(alertservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  alertrepo.Provide(),
	})
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Calendar: cal,
		Repo:     repository.Provide(),
		Alerts:   alerts,
		Engine:   config.NewStaticEngineConfigHolder(config.DefaultEngineConfig()),
		Random:   random,
		Locker:   locker,
	})
	return fixture{svc: svc, alerts: alerts, db: conn, node: node, clock: clk, cal: cal, owner: node.Generate()}
}

func (f fixture) upsert(t *testing.T, day time.Time, amount float64) *usagedomain.UpsertResult {
	t.Helper()
	res, err := f.svc.Upsert(context.Background(), usagedomain.UpsertRequest{
		OwnerID:   f.owner.String(),
		Day:       day,
		Amount:    amount,
		Threshold: 200,
	})
	require.NoError(t, err)
	return res
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestUpsertIsIdempotentByDay(t *testing.T) {
	f := setup(t, nil, nil)

	first := f.upsert(t, testNow, 120)
	assert.True(t, first.Created)
	assert.Equal(t, f.cal.Midnight(testNow), first.Record.Day)

	// A different time on the same calendar day hits the same record.
	second := f.upsert(t, testNow.Add(5*time.Hour), 90)
	assert.False(t, second.Created)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	records, err := f.svc.ListAll(context.Background(), f.owner.String())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 90.0, records[0].AmountLiters)
}

func TestUpsertClearsAlertOutsideUTC(t *testing.T) {
	// 01:00 on the 15th at UTC+7; the local day began at 17:00Z on the 14th.
	now := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	f := setupAt(t, window.NewCalendar(time.FixedZone("UTC+7", 7*3600)), now, nil, nil)
	ctx := context.Background()

	over := f.upsert(t, now, 250)
	require.NotNil(t, over.Alert)
	assert.Equal(t, time.Date(2026, 10, 14, 17, 0, 0, 0, time.UTC), over.Record.Day)

	active, err := f.alerts.ListActive(ctx, f.owner.String())
	require.NoError(t, err)
	require.Len(t, active, 1)

	under := f.upsert(t, now.Add(30*time.Minute), 100)
	assert.False(t, under.Created)
	assert.Nil(t, under.Alert)

	active, err = f.alerts.ListActive(ctx, f.owner.String())
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.EqualValues(t, 1, countRows(t, f.db, &usagedomain.UsageRecord{}))
}

func TestUpsertValidation(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  usagedomain.UpsertRequest
		want error
	}{
		{"negative", usagedomain.UpsertRequest{OwnerID: f.owner.String(), Day: testNow, Amount: -1, Threshold: 200}, usagedomain.ErrInvalidAmount},
		{"nan", usagedomain.UpsertRequest{OwnerID: f.owner.String(), Day: testNow, Amount: math.NaN(), Threshold: 200}, usagedomain.ErrInvalidAmount},
		{"inf", usagedomain.UpsertRequest{OwnerID: f.owner.String(), Day: testNow, Amount: math.Inf(1), Threshold: 200}, usagedomain.ErrInvalidAmount},
		{"zero threshold", usagedomain.UpsertRequest{OwnerID: f.owner.String(), Day: testNow, Amount: 1, Threshold: 0}, threshold.ErrInvalidThreshold},
		{"no day", usagedomain.UpsertRequest{OwnerID: f.owner.String(), Amount: 1, Threshold: 200}, usagedomain.ErrInvalidDate},
		{"no owner", usagedomain.UpsertRequest{Day: testNow, Amount: 1, Threshold: 200}, usagedomain.ErrInvalidOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upsert(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, countRows(t, f.db, &usagedomain.UsageRecord{}))
}

func TestUpsertScenarios(t *testing.T) {
	f := setup(t, nil, nil)

	res := f.upsert(t, testNow, 250)
	require.NotNil(t, res.Alert)
	assert.Equal(t, alertdomain.KindThresholdExceeded, res.Alert.Kind)
	assert.Contains(t, res.Alert.Message, "50.0L")
	require.NotNil(t, res.Alert.RelatedUsageID)
	assert.Equal(t, res.Record.ID, *res.Alert.RelatedUsageID)

	res = f.upsert(t, testNow, 170)
	require.NotNil(t, res.Alert)
	assert.Equal(t, alertdomain.KindApproachingLimit, res.Alert.Kind)
	assert.Contains(t, res.Alert.Message, "85%")

	res = f.upsert(t, testNow, 100)
	assert.Nil(t, res.Alert)

	active, err := f.alerts.ListActive(context.Background(), f.owner.String())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStatisticsUsesHalfOpenWindows(t *testing.T) {
	f := setup(t, nil, nil)
	today := f.cal.Midnight(testNow)

	f.upsert(t, today, 100)
	f.upsert(t, f.cal.AddDays(today, -6), 10)
	f.upsert(t, f.cal.AddDays(today, -7), 20)
	f.upsert(t, f.cal.AddDays(today, -29), 30)
	f.upsert(t, f.cal.AddDays(today, -30), 40)
	f.upsert(t, f.cal.AddDays(today, 1), 1000)

	stats, err := f.svc.Statistics(context.Background(), f.owner.String())
	require.NoError(t, err)
	assert.Equal(t, usagedomain.Statistics{Today: 100, Weekly: 110, Monthly: 160}, *stats)

	records, err := f.svc.ListAll(context.Background(), f.owner.String())
	require.NoError(t, err)
	require.Len(t, records, 6)
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Day.Before(records[i].Day), "records must be sorted by day")
	}
}

func TestFindForDay(t *testing.T) {
	f := setup(t, nil, nil)
	f.upsert(t, testNow, 42)

	rec, err := f.svc.FindForDay(context.Background(), f.owner.String(), testNow.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 42.0, rec.AmountLiters)

	rec, err = f.svc.FindForDay(context.Background(), f.owner.String(), testNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestListMonth(t *testing.T) {
	f := setup(t, nil, nil)
	f.upsert(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), 1)
	f.upsert(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), 2)
	f.upsert(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), 3)

	records, err := f.svc.ListMonth(context.Background(), f.owner.String(), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2.0, records[0].AmountLiters)
}

func TestSimulateSevenDays(t *testing.T) {
	random := &fixedRandom{values: []float64{0.999, 0.2, 0.0}}
	f := setup(t, random, nil)
	today := f.cal.Midnight(testNow)

	// Pre-existing real data on a simulated day is replaced.
	f.upsert(t, f.cal.AddDays(today, -3), 5)

	res, err := f.svc.Simulate(context.Background(), usagedomain.SimulateRequest{
		OwnerID:   f.owner.String(),
		Threshold: 200,
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 7)
	assert.NotEmpty(t, res.CorrelationID)

	seen := map[time.Time]bool{}
	for i, rec := range res.Records {
		assert.True(t, rec.IsSimulated)
		assert.Equal(t, f.cal.AddDays(today, -i), rec.Day)
		assert.GreaterOrEqual(t, rec.AmountLiters, 150.0)
		assert.Less(t, rec.AmountLiters, 250.0)
		assert.Equal(t, math.Trunc(rec.AmountLiters), rec.AmountLiters)
		seen[rec.Day] = true
	}
	assert.Len(t, seen, 7)
	assert.Equal(t, 249.0, res.Records[0].AmountLiters)
	assert.Equal(t, 170.0, res.Records[1].AmountLiters)
	assert.Equal(t, 150.0, res.Records[2].AmountLiters)

	assert.EqualValues(t, 7, countRows(t, f.db, &usagedomain.UsageRecord{}))

	// 249 exceeds and 170 approaches; 150 is good.
	kinds := map[alertdomain.Kind]int{}
	for _, a := range res.Alerts {
		kinds[a.Kind]++
	}
	assert.Equal(t, 7-countGood(res.Records), len(res.Alerts))
	assert.Positive(t, kinds[alertdomain.KindThresholdExceeded])
	assert.Positive(t, kinds[alertdomain.KindApproachingLimit])
}

func countGood(records []usagedomain.UsageRecord) int {
	n := 0
	for _, r := range records {
		if b, _ := threshold.Classify(r.AmountLiters, 200); b == threshold.BandGood {
			n++
		}
	}
	return n
}

func TestSimulateDaysBounds(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Simulate(ctx, usagedomain.SimulateRequest{OwnerID: f.owner.String(), Days: -1, Threshold: 200})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidDays)
	_, err = f.svc.Simulate(ctx, usagedomain.SimulateRequest{OwnerID: f.owner.String(), Days: 366, Threshold: 200})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidDays)

	res, err := f.svc.Simulate(ctx, usagedomain.SimulateRequest{OwnerID: f.owner.String(), Days: 1, Threshold: 200})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}

func TestUpsertHonorsDayLock(t *testing.T) {
	lock := &lockStub{}
	f := setup(t, nil, lock)
	f.upsert(t, testNow, 10)
	assert.Equal(t, 1, lock.locked)
	assert.Equal(t, 1, lock.freed)

	lock.err = ratelimit.ErrLockHeld
	_, err := f.svc.Upsert(context.Background(), usagedomain.UpsertRequest{
		OwnerID: f.owner.String(), Day: testNow, Amount: 20, Threshold: 200,
	})
	assert.ErrorIs(t, err, usagedomain.ErrConflict)

	// Lock backend failures do not block writes.
	lock.err = errors.New("redis down")
	f.upsert(t, testNow, 30)
}

func TestDeleteByOwner(t *testing.T) {
	f := setup(t, nil, nil)
	f.upsert(t, testNow, 10)
	require.NoError(t, f.svc.DeleteByOwner(context.Background(), nil, f.owner))
	assert.Zero(t, countRows(t, f.db, &usagedomain.UsageRecord{}))
}
