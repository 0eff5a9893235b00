package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	"github.com/smallbiznis/aquaalerts/pkg/db/option"
	"github.com/smallbiznis/aquaalerts/pkg/repository"
	"gorm.io/gorm"
)

const insertBatchSize = 100

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func store(db *gorm.DB) repository.Repository[usagedomain.UsageRecord] {
	return repository.ProvideStore[usagedomain.UsageRecord](db)
}

func dayRange(from, to time.Time) option.QueryOption {
	return option.WithWhere("day >= ? AND day < ?", from, to)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *usagedomain.UsageRecord) error {
	return store(db).Create(ctx, record)
}

func (r *repo) BatchInsert(ctx context.Context, db *gorm.DB, records []*usagedomain.UsageRecord) error {
	return store(db).BatchCreate(ctx, records, insertBatchSize)
}

func (r *repo) UpdateAmount(ctx context.Context, db *gorm.DB, record *usagedomain.UsageRecord) error {
	_, err := store(db).UpdateColumns(ctx,
		&usagedomain.UsageRecord{ID: record.ID, OwnerID: record.OwnerID},
		map[string]any{
			"amount_liters": record.AmountLiters,
			"is_simulated":  record.IsSimulated,
			"updated_at":    record.UpdatedAt,
		},
	)
	return err
}

func (r *repo) FindForDay(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, day time.Time) (*usagedomain.UsageRecord, error) {
	return store(db).FindOne(ctx, &usagedomain.UsageRecord{OwnerID: ownerID},
		option.WithWhere("day = ?", day),
	)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]usagedomain.UsageRecord, error) {
	records, err := store(db).Find(ctx, &usagedomain.UsageRecord{OwnerID: ownerID},
		option.WithSortBy("day", "asc"),
	)
	return repository.Values(records), err
}

func (r *repo) ListBetween(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) ([]usagedomain.UsageRecord, error) {
	records, err := store(db).Find(ctx, &usagedomain.UsageRecord{OwnerID: ownerID},
		dayRange(from, to),
		option.WithSortBy("day", "asc"),
	)
	return repository.Values(records), err
}

func (r *repo) SumBetween(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) (float64, error) {
	return store(db).Sum(ctx, "amount_liters", &usagedomain.UsageRecord{OwnerID: ownerID}, dayRange(from, to))
}

func (r *repo) DeleteDays(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, days []time.Time) error {
	if len(days) == 0 {
		return nil
	}
	_, err := store(db).Delete(ctx, &usagedomain.UsageRecord{OwnerID: ownerID},
		option.WithWhere("day IN ?", days),
	)
	return err
}

func (r *repo) DeleteByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) error {
	_, err := store(db).Delete(ctx, &usagedomain.UsageRecord{OwnerID: ownerID})
	return err
}
