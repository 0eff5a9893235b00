package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	"github.com/smallbiznis/aquaalerts/internal/alert/liveevents"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	obsmetrics "github.com/smallbiznis/aquaalerts/internal/observability/metrics"
	"github.com/smallbiznis/aquaalerts/internal/threshold"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         alertdomain.Repository
	LiveEvents   *liveevents.Hub          `optional:"true"`
	Metrics      *obsmetrics.Metrics      `optional:"true"`
	StoreMetrics *obsmetrics.StoreMetrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  alertdomain.Repository

	liveEvents   *liveevents.Hub
	metrics      *obsmetrics.Metrics
	storeMetrics *obsmetrics.StoreMetrics
}

func New(p Params) alertdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("alert.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,

		liveEvents:   p.LiveEvents,
		metrics:      p.Metrics,
		storeMetrics: p.StoreMetrics,
	}
}

func (s *Service) Regenerate(ctx context.Context, db *gorm.DB, req alertdomain.RegenerateRequest) (*alertdomain.Alert, error) {
	if req.OwnerID == 0 {
		return nil, alertdomain.ErrInvalidOwner
	}
	if req.Day.IsZero() || !req.NextDay.After(req.Day) {
		return nil, alertdomain.ErrInvalidDay
	}
	band, err := threshold.Classify(req.Amount, req.Threshold)
	if err != nil {
		return nil, err
	}
	if db == nil {
		db = s.db
	}

	// Alerts are correlated to the day by creation time, not by usage day.
	if err := s.repo.DeleteCreatedBetween(ctx, db, req.OwnerID, req.Day, req.NextDay); err != nil {
		return nil, err
	}

	var (
		kind    alertdomain.Kind
		message string
	)
	meta := datatypes.JSONMap{
		"amount":    req.Amount,
		"threshold": req.Threshold,
	}
	switch band {
	case threshold.BandExceeded:
		kind = alertdomain.KindThresholdExceeded
		message = exceededMessage(req.Amount, req.Threshold)
		meta["over_by"] = req.Amount - req.Threshold
	case threshold.BandWarning:
		percent := threshold.Percent(req.Amount, req.Threshold)
		kind = alertdomain.KindApproachingLimit
		message = approachingMessage(req.Amount, percent)
		meta["percent"] = percent
	default:
		return nil, nil
	}

	now := s.clock.Now().UTC()
	alert := &alertdomain.Alert{
		ID:        s.genID.Generate(),
		OwnerID:   req.OwnerID,
		Kind:      kind,
		Message:   message,
		IsActive:  true,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.RelatedUsageID != 0 {
		related := req.RelatedUsageID
		alert.RelatedUsageID = &related
	}
	if err := s.repo.Insert(ctx, db, alert); err != nil {
		return nil, err
	}

	s.metrics.RecordAlertGenerated(ctx, string(kind))
	return alert, nil
}

func (s *Service) PurgeCreatedBetween(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) error {
	if ownerID == 0 {
		return alertdomain.ErrInvalidOwner
	}
	if db == nil {
		db = s.db
	}
	return s.repo.DeleteCreatedBetween(ctx, db, ownerID, from, to)
}

func (s *Service) Dismiss(ctx context.Context, req alertdomain.DismissRequest) (err error) {
	started := time.Now()
	defer func() {
		if !errors.Is(err, alertdomain.ErrNotFound) {
			s.storeMetrics.Observe(obsmetrics.StoreOpDismissAlert, started, err)
		}
	}()

	ownerID, err := parseID(req.OwnerID, alertdomain.ErrInvalidOwner)
	if err != nil {
		return err
	}
	alertID, err := parseID(req.AlertID, alertdomain.ErrNotFound)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, s.db, ownerID, alertID)
	if err != nil {
		return err
	}
	if existing == nil || !existing.IsActive {
		return alertdomain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	affected, err := s.repo.Deactivate(ctx, s.db, ownerID, alertID, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		return alertdomain.ErrNotFound
	}

	s.metrics.RecordAlertDismissed(ctx, string(existing.Kind))
	s.liveEvents.Publish(ownerID.String(), liveevents.Event{
		Type:       liveevents.TypeAlertDismissed,
		AlertID:    alertID.String(),
		Kind:       string(existing.Kind),
		IsActive:   false,
		OccurredAt: now,
	})
	return nil
}

func (s *Service) ListActive(ctx context.Context, ownerID string) ([]alertdomain.Alert, error) {
	id, err := parseID(ownerID, alertdomain.ErrInvalidOwner)
	if err != nil {
		return nil, err
	}
	alerts, err := s.repo.ListActive(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []alertdomain.Alert{}
	}
	return alerts, nil
}

func (s *Service) DeleteByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) error {
	if ownerID == 0 {
		return alertdomain.ErrInvalidOwner
	}
	if db == nil {
		db = s.db
	}
	return s.repo.DeleteByOwner(ctx, db, ownerID)
}

func (s *Service) Announce(alerts ...alertdomain.Alert) {
	for _, a := range alerts {
		s.liveEvents.Publish(a.OwnerID.String(), liveevents.Event{
			Type:       liveevents.TypeAlertCreated,
			AlertID:    a.ID.String(),
			Kind:       string(a.Kind),
			Message:    a.Message,
			IsActive:   a.IsActive,
			OccurredAt: a.CreatedAt,
		})
	}
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, invalid
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
