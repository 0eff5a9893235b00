package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	"github.com/smallbiznis/aquaalerts/pkg/db/option"
	"github.com/smallbiznis/aquaalerts/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accountdomain.Repository {
	return &repo{}
}

func store(db *gorm.DB) repository.Repository[accountdomain.Account] {
	return repository.ProvideStore[accountdomain.Account](db)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *accountdomain.Account) error {
	return store(db).Create(ctx, account)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*accountdomain.Account, error) {
	return store(db).FindOne(ctx, &accountdomain.Account{ID: id})
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*accountdomain.Account, error) {
	return store(db).FindOne(ctx, &accountdomain.Account{Email: email})
}

func (r *repo) ListByRole(ctx context.Context, db *gorm.DB, role accountdomain.Role) ([]*accountdomain.Account, error) {
	return store(db).Find(ctx, &accountdomain.Account{Role: role},
		option.WithSortBy("created_at", "asc"),
	)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, account *accountdomain.Account) error {
	_, err := store(db).UpdateColumns(ctx, &accountdomain.Account{ID: account.ID}, map[string]any{
		"name":            account.Name,
		"email":           account.Email,
		"password_hash":   account.PasswordHash,
		"daily_threshold": account.DailyThreshold,
		"role":            account.Role,
		"is_verified":     account.IsVerified,
		"updated_at":      account.UpdatedAt,
	})
	return err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	_, err := store(db).Delete(ctx, &accountdomain.Account{ID: id})
	return err
}
