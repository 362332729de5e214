package repository

import (
	"context"
	"errors"

	"github.com/galette-community/plugin-stripe/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db    *gorm.DB
	table string
}

// ProvideStore binds a store to table. Zero-valued fields of query structs
// are ignored when filtering, as with gorm struct conditions.
func ProvideStore[T any](db *gorm.DB, table string) Repository[T] {
	return &store[T]{db: db, table: table}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return r
	}
	return &store[T]{db: tx, table: r.table}
}

func (r *store[T]) Table() string {
	return r.table
}

func (r *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	stmt := r.buildQuery(ctx, query, opts...)
	err := stmt.Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var result T
	stmt := r.buildQuery(ctx, query, opts...)
	err := stmt.Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Exists(ctx context.Context, query *T) (bool, error) {
	var found int
	err := r.buildQuery(ctx, query).Select("1").Limit(1).Scan(&found).Error
	if err != nil {
		return false, err
	}
	return found == 1, nil
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Table(r.table).Create(resource).Error
}

func (r *store[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if len(resources) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Table(r.table).Create(resources).Error
}

func (r *store[T]) Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error) {
	var count int64
	err := r.buildQuery(ctx, query, opts...).Count(&count).Error
	return count, err
}

// UpdateColumns updates the rows selected by opts and reports how many changed.
// At least one option must constrain the update.
func (r *store[T]) UpdateColumns(ctx context.Context, values map[string]any, opts ...option.QueryOption) (int64, error) {
	if len(opts) == 0 {
		return 0, gorm.ErrMissingWhereClause
	}
	stmt := r.db.WithContext(ctx).Table(r.table)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	res := stmt.Updates(values)
	return res.RowsAffected, res.Error
}

func (r *store[T]) buildQuery(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	db := r.db.WithContext(ctx).Table(r.table)
	if filter != nil {
		db = db.Where(filter)
	}

	for _, opt := range opts {
		db = opt.Apply(db)
	}

	return db
}
