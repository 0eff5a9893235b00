package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	"github.com/smallbiznis/aquaalerts/pkg/db/option"
	"github.com/smallbiznis/aquaalerts/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() alertdomain.Repository {
	return &repo{}
}

func store(db *gorm.DB) repository.Repository[alertdomain.Alert] {
	return repository.ProvideStore[alertdomain.Alert](db)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, alert *alertdomain.Alert) error {
	return store(db).Create(ctx, alert)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*alertdomain.Alert, error) {
	if ownerID == 0 || id == 0 {
		return nil, nil
	}
	return store(db).FindOne(ctx, &alertdomain.Alert{ID: id, OwnerID: ownerID})
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]alertdomain.Alert, error) {
	alerts, err := store(db).Find(ctx, &alertdomain.Alert{OwnerID: ownerID, IsActive: true},
		option.WithSortBy("created_at", "desc"),
		option.WithSortBy("id", "desc"),
	)
	return repository.Values(alerts), err
}

// Deactivate only touches an active alert; zero rows means nothing matched.
func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, at time.Time) (int64, error) {
	if ownerID == 0 || id == 0 {
		return 0, nil
	}
	return store(db).UpdateColumns(ctx,
		&alertdomain.Alert{ID: id, OwnerID: ownerID, IsActive: true},
		map[string]any{"is_active": false, "updated_at": at},
	)
}

func (r *repo) DeleteCreatedBetween(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) error {
	_, err := store(db).Delete(ctx, &alertdomain.Alert{OwnerID: ownerID},
		option.WithWhere("created_at >= ? AND created_at < ?", from, to),
	)
	return err
}

func (r *repo) DeleteByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) error {
	_, err := store(db).Delete(ctx, &alertdomain.Alert{OwnerID: ownerID})
	return err
}
