// Package option holds composable query modifiers applied by repository stores.
package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// Direction is a sort direction accepted by WithOrder.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps user input to a direction, falling back to def.
func ParseDirection(raw string, def Direction) Direction {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case Asc:
		return Asc
	case Desc:
		return Desc
	default:
		return def
	}
}

// WithOrder orders by column. column must be a trusted identifier.
func WithOrder(column string, dir Direction) QueryOption {
	if dir != Asc {
		dir = Desc
	}
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(fmt.Sprintf("%s %s", column, dir))
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOffset(offset int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return db
		}
		return db.Offset(offset)
	})
}

func WithWhere(query string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}
