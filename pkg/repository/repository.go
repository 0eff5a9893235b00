// Package repository provides a generic gorm store for the owner-scoped
// tables. Filters are struct values: zero fields are ignored, extra
// conditions come in as query options.
package repository

import (
	"context"

	"github.com/smallbiznis/aquaalerts/pkg/db/option"
	"gorm.io/gorm"
)

type Repository[T any] interface {
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T, batchSize int) error
	UpdateColumns(ctx context.Context, filter *T, columns map[string]any, opts ...option.QueryOption) (int64, error)
	Delete(ctx context.Context, filter *T, opts ...option.QueryOption) (int64, error)
	Count(ctx context.Context, filter *T, opts ...option.QueryOption) (int64, error)
	Sum(ctx context.Context, column string, filter *T, opts ...option.QueryOption) (float64, error)
}

// Values copies a pointer slice into a value slice.
func Values[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

var _ Repository[struct{}] = (*store[struct{}])(nil)

// ProvideStore binds a store to db, which may be a transaction.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}
