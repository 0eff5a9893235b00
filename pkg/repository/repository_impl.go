package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/smallbiznis/aquaalerts/pkg/db/option"
	"gorm.io/gorm"
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var ErrInvalidColumn = errors.New("invalid_column")

type store[T any] struct {
	db *gorm.DB
}

func (r *store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	err := r.scoped(ctx, filter, opts...).Find(&result).Error
	return result, err
}

// FindOne returns nil, nil when nothing matches.
func (r *store[T]) FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error) {
	var result T
	err := r.scoped(ctx, filter, opts...).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *store[T]) BatchCreate(ctx context.Context, resources []*T, batchSize int) error {
	if len(resources) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return r.db.WithContext(ctx).CreateInBatches(resources, batchSize).Error
}

// UpdateColumns writes columns on every row matching filter and reports how
// many rows changed. gorm refuses the call when there is no condition.
func (r *store[T]) UpdateColumns(ctx context.Context, filter *T, columns map[string]any, opts ...option.QueryOption) (int64, error) {
	if len(columns) == 0 {
		return 0, nil
	}
	res := r.scoped(ctx, filter, opts...).Updates(columns)
	return res.RowsAffected, res.Error
}

// Delete removes every row matching filter. An empty filter without options
// fails with gorm.ErrMissingWhereClause.
func (r *store[T]) Delete(ctx context.Context, filter *T, opts ...option.QueryOption) (int64, error) {
	res := r.scoped(ctx, filter, opts...).Delete(new(T))
	return res.RowsAffected, res.Error
}

func (r *store[T]) Count(ctx context.Context, filter *T, opts ...option.QueryOption) (int64, error) {
	var count int64
	err := r.scoped(ctx, filter, opts...).Count(&count).Error
	return count, err
}

// Sum adds up column over the matching rows; no rows sum to 0.
func (r *store[T]) Sum(ctx context.Context, column string, filter *T, opts ...option.QueryOption) (float64, error) {
	if !columnPattern.MatchString(column) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, column)
	}
	var total float64
	err := r.scoped(ctx, filter, opts...).
		Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", column)).
		Scan(&total).Error
	return total, err
}

func (r *store[T]) scoped(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	db := r.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		db = db.Where(filter)
	}
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db
}
