package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	obslogger "github.com/smallbiznis/aquaalerts/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/aquaalerts/internal/observability/metrics"
	"github.com/smallbiznis/aquaalerts/internal/ratelimit"
	"github.com/smallbiznis/aquaalerts/internal/threshold"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	"github.com/smallbiznis/aquaalerts/internal/usage/window"
	"github.com/smallbiznis/aquaalerts/pkg/db"
	"github.com/smallbiznis/aquaalerts/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Calendar     window.Calendar
	Repo         usagedomain.Repository
	Alerts       alertdomain.Service
	Engine       *config.EngineConfigHolder `optional:"true"`
	Random       usagedomain.RandomSource   `optional:"true"`
	Locker       usagedomain.DayLocker      `optional:"true"`
	Metrics      *obsmetrics.Metrics        `optional:"true"`
	StoreMetrics *obsmetrics.StoreMetrics   `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	calendar window.Calendar
	repo     usagedomain.Repository
	alerts   alertdomain.Service
	engine   *config.EngineConfigHolder
	random   usagedomain.RandomSource
	locker   usagedomain.DayLocker

	metrics      *obsmetrics.Metrics
	storeMetrics *obsmetrics.StoreMetrics
}

func New(p Params) usagedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	random := p.Random
	if random == nil {
		random = NewRandomSource()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("usage.service"),
		genID:    p.GenID,
		clock:    clk,
		calendar: p.Calendar,
		repo:     p.Repo,
		alerts:   p.Alerts,
		engine:   p.Engine,
		random:   random,
		locker:   p.Locker,

		metrics:      p.Metrics,
		storeMetrics: p.StoreMetrics,
	}
}

func (s *Service) Upsert(ctx context.Context, req usagedomain.UpsertRequest) (*usagedomain.UpsertResult, error) {
	ownerID, err := parseOwner(req.OwnerID)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount < 0 {
		return nil, usagedomain.ErrInvalidAmount
	}
	if err := threshold.Validate(req.Threshold); err != nil {
		return nil, err
	}
	if req.Day.IsZero() {
		return nil, usagedomain.ErrInvalidDate
	}

	day := s.calendar.Midnight(req.Day)
	nextDay := s.calendar.AddDays(day, 1)

	unlock, err := s.lockDay(ctx, ownerID, day)
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := time.Now()
	now := s.clock.Now().UTC()
	result := &usagedomain.UpsertResult{}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, created, err := s.writeDay(ctx, tx, ownerID, day, req.Amount, now)
		if err != nil {
			return err
		}

		alert, err := s.alerts.Regenerate(ctx, tx, alertdomain.RegenerateRequest{
			OwnerID:        ownerID,
			Day:            day,
			NextDay:        nextDay,
			Amount:         req.Amount,
			Threshold:      req.Threshold,
			RelatedUsageID: record.ID,
		})
		if err != nil {
			return err
		}

		result.Record = record
		result.Created = created
		result.Alert = alert
		return nil
	})
	s.storeMetrics.Observe(obsmetrics.StoreOpUpsertUsage, started, err)
	if err != nil {
		return nil, err
	}

	outcome := "updated"
	if result.Created {
		outcome = "created"
	}
	s.metrics.RecordUsageWrite(ctx, outcome, false, req.Amount)
	if result.Alert != nil {
		s.alerts.Announce(*result.Alert)
	}

	obslogger.WithOwner(obslogger.WithContext(ctx, s.log), ownerID.String()).Debug("usage recorded",
		zap.String("day", day.Format(time.RFC3339)),
		zap.String("outcome", outcome),
		zap.Bool("alert", result.Alert != nil),
	)
	return result, nil
}

// writeDay replaces the amount of an existing day or inserts a new one. A
// concurrent insert losing the unique index race falls back to an update.
func (s *Service) writeDay(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, day time.Time, amount float64, now time.Time) (*usagedomain.UsageRecord, bool, error) {
	existing, err := s.repo.FindForDay(ctx, tx, ownerID, day)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		record := &usagedomain.UsageRecord{
			ID:           s.genID.Generate(),
			OwnerID:      ownerID,
			Day:          day,
			AmountLiters: amount,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.SavePoint("usage_insert").Error; err != nil {
			return nil, false, err
		}
		err := s.repo.Insert(ctx, tx, record)
		if err == nil {
			return record, true, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, false, err
		}
		if err := tx.RollbackTo("usage_insert").Error; err != nil {
			return nil, false, err
		}
		existing, err = s.repo.FindForDay(ctx, tx, ownerID, day)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, usagedomain.ErrConflict
		}
	}

	existing.AmountLiters = amount
	existing.UpdatedAt = now
	if err := s.repo.UpdateAmount(ctx, tx, existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Service) lockDay(ctx context.Context, ownerID snowflake.ID, day time.Time) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	unlock, err := s.locker.LockDay(ctx, ownerID, day)
	switch {
	case err == nil:
		if unlock == nil {
			return noop, nil
		}
		return unlock, nil
	case errors.Is(err, ratelimit.ErrLockHeld):
		return nil, usagedomain.ErrConflict
	default:
		// The transaction and unique index still guard the write.
		s.log.Warn("usage day lock unavailable, continuing without it", zap.Error(err))
		return noop, nil
	}
}

func (s *Service) ListAll(ctx context.Context, ownerID string) ([]usagedomain.UsageRecord, error) {
	id, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.List(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []usagedomain.UsageRecord{}
	}
	return records, nil
}

func (s *Service) FindForDay(ctx context.Context, ownerID string, day time.Time) (*usagedomain.UsageRecord, error) {
	id, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		return nil, usagedomain.ErrInvalidDate
	}
	return s.repo.FindForDay(ctx, s.db, id, s.calendar.Midnight(day))
}

func (s *Service) Statistics(ctx context.Context, ownerID string) (*usagedomain.Statistics, error) {
	records, err := s.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats := window.Compute(records, s.calendar.Windows(s.clock.Now()))
	return &stats, nil
}

func (s *Service) ListMonth(ctx context.Context, ownerID string, month time.Time) ([]usagedomain.UsageRecord, error) {
	id, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}
	if month.IsZero() {
		return nil, usagedomain.ErrInvalidMonth
	}
	local := month.In(s.calendar.Location())
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.calendar.Location())
	from := first.UTC()
	to := first.AddDate(0, 1, 0).UTC()

	records, err := s.repo.ListBetween(ctx, s.db, id, from, to)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []usagedomain.UsageRecord{}
	}
	return records, nil
}

func (s *Service) Simulate(ctx context.Context, req usagedomain.SimulateRequest) (*usagedomain.SimulateResult, error) {
	ownerID, err := parseOwner(req.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := threshold.Validate(req.Threshold); err != nil {
		return nil, err
	}

	sim := s.engine.Get().Simulation
	days := req.Days
	if days == 0 {
		days = sim.DefaultDays
	}
	if days < 1 || days > sim.MaxDays {
		return nil, usagedomain.ErrInvalidDays
	}

	ctx, cid := correlation.EnsureCorrelationID(ctx)
	log := obslogger.WithOwner(obslogger.WithContext(ctx, s.log), ownerID.String())

	now := s.clock.Now().UTC()
	today := s.calendar.Midnight(now)
	oldest := s.calendar.AddDays(today, -(days - 1))
	end := s.calendar.AddDays(today, 1)

	dayList := make([]time.Time, 0, days)
	records := make([]*usagedomain.UsageRecord, 0, days)
	for i := 0; i < days; i++ {
		day := s.calendar.AddDays(today, -i)
		dayList = append(dayList, day)
		records = append(records, &usagedomain.UsageRecord{
			ID:           s.genID.Generate(),
			OwnerID:      ownerID,
			Day:          day,
			AmountLiters: s.drawLiters(sim),
			IsSimulated:  true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	started := time.Now()
	var generated []alertdomain.Alert
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteDays(ctx, tx, ownerID, dayList); err != nil {
			return err
		}
		// The simulated days are contiguous, so one range covers every
		// alert created on any of them.
		if err := s.alerts.PurgeCreatedBetween(ctx, tx, ownerID, oldest, end); err != nil {
			return err
		}
		if err := s.repo.BatchInsert(ctx, tx, records); err != nil {
			return err
		}
		for _, record := range records {
			alert, err := s.alerts.Regenerate(ctx, tx, alertdomain.RegenerateRequest{
				OwnerID:        ownerID,
				Day:            record.Day,
				NextDay:        s.calendar.AddDays(record.Day, 1),
				Amount:         record.AmountLiters,
				Threshold:      req.Threshold,
				RelatedUsageID: record.ID,
			})
			if err != nil {
				return err
			}
			if alert != nil {
				generated = append(generated, *alert)
			}
		}
		return nil
	})
	s.storeMetrics.Observe(obsmetrics.StoreOpSimulate, started, err)
	if err != nil {
		log.Error("simulation failed", zap.Int("days", days), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordSimulation(ctx, days)
	out := make([]usagedomain.UsageRecord, 0, len(records))
	for _, record := range records {
		s.metrics.RecordUsageWrite(ctx, "created", true, record.AmountLiters)
		out = append(out, *record)
	}
	s.alerts.Announce(generated...)

	log.Info("simulated usage generated",
		zap.Int("days", days),
		zap.Int("alerts", len(generated)),
	)
	return &usagedomain.SimulateResult{
		CorrelationID: cid,
		Records:       out,
		Alerts:        generated,
	}, nil
}

// drawLiters returns a whole number of liters in [MinLiters, MaxLiters).
func (s *Service) drawLiters(sim config.SimulationConfig) float64 {
	span := sim.MaxLiters - sim.MinLiters
	v := sim.MinLiters + math.Floor(s.random.Float64()*span)
	if v >= sim.MaxLiters {
		v = math.Ceil(sim.MaxLiters) - 1
	}
	return v
}

func (s *Service) DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID) error {
	if ownerID == 0 {
		return usagedomain.ErrInvalidOwner
	}
	if tx == nil {
		tx = s.db
	}
	return s.repo.DeleteByOwner(ctx, tx, ownerID)
}

func parseOwner(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, usagedomain.ErrInvalidOwner
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, usagedomain.ErrInvalidOwner
	}
	return id, nil
}
