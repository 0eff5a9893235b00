package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, alert *Alert) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Alert, error)
	ListActive(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Alert, error)
	Deactivate(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, at time.Time) (int64, error)
	DeleteCreatedBetween(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) error
	DeleteByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) error
}
