package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// Regenerate runs on db, which may be an open transaction.
	Regenerate(ctx context.Context, db *gorm.DB, req RegenerateRequest) (*Alert, error)
	PurgeCreatedBetween(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) error
	Dismiss(ctx context.Context, req DismissRequest) error
	ListActive(ctx context.Context, ownerID string) ([]Alert, error)
	DeleteByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) error
	// Announce publishes committed alerts to live subscribers.
	Announce(alerts ...Alert)
}

// RegenerateRequest describes a usage write. Day and NextDay bound the
// creation-time window whose alerts are replaced.
type RegenerateRequest struct {
	OwnerID        snowflake.ID
	Day            time.Time
	NextDay        time.Time
	Amount         float64
	Threshold      float64
	RelatedUsageID snowflake.ID
}

type DismissRequest struct {
	OwnerID string
	AlertID string
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidDay   = errors.New("invalid_day")
	ErrNotFound     = errors.New("alert_not_found")
)
