package repository

import (
	"context"

	"github.com/galette-community/plugin-stripe/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is an append/list/paginate capability over one table whose rows
// have the shape T. Domain repositories embed it instead of re-implementing
// the plumbing.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Table() string

	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Exists(ctx context.Context, query *T) (bool, error)
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
	UpdateColumns(ctx context.Context, values map[string]any, opts ...option.QueryOption) (int64, error)
}
