package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *UsageRecord) error
	BatchInsert(ctx context.Context, db *gorm.DB, records []*UsageRecord) error
	UpdateAmount(ctx context.Context, db *gorm.DB, record *UsageRecord) error
	FindForDay(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, day time.Time) (*UsageRecord, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]UsageRecord, error)
	ListBetween(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) ([]UsageRecord, error)
	SumBetween(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) (float64, error)
	DeleteDays(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, days []time.Time) error
	DeleteByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) error
}
