package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	"gorm.io/gorm"
)

type Service interface {
	Upsert(ctx context.Context, req UpsertRequest) (*UpsertResult, error)
	ListAll(ctx context.Context, ownerID string) ([]UsageRecord, error)
	FindForDay(ctx context.Context, ownerID string, day time.Time) (*UsageRecord, error)
	Statistics(ctx context.Context, ownerID string) (*Statistics, error)
	ListMonth(ctx context.Context, ownerID string, month time.Time) ([]UsageRecord, error)
	Simulate(ctx context.Context, req SimulateRequest) (*SimulateResult, error)
	DeleteByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) error
}

type UpsertRequest struct {
	OwnerID   string
	Day       time.Time
	Amount    float64
	Threshold float64
}

type UpsertResult struct {
	Record  *UsageRecord
	Created bool
	Alert   *alertdomain.Alert
}

type SimulateRequest struct {
	OwnerID   string
	Days      int
	Threshold float64
}

type SimulateResult struct {
	CorrelationID string
	Records       []UsageRecord
	Alerts        []alertdomain.Alert
}

// RandomSource supplies uniform draws in [0, 1).
type RandomSource interface {
	Float64() float64
}

// DayLocker serializes writes to one owner's day across processes.
type DayLocker interface {
	LockDay(ctx context.Context, ownerID snowflake.ID, day time.Time) (unlock func(), err error)
}

var (
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidDate   = errors.New("invalid_date")
	ErrInvalidDays   = errors.New("invalid_days")
	ErrInvalidMonth  = errors.New("invalid_month")
	ErrConflict      = errors.New("usage_write_in_progress")
)

const dayLayout = "2006-01-02"

// ParseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// instant in loc. Callers normalize to midnight.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(dayLayout, value, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, ErrInvalidDate
}

// ParseMonth accepts YYYY-MM and returns the first day of that month in loc.
func ParseMonth(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01", value, loc)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t, nil
}

func FormatDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dayLayout)
}
