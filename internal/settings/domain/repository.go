package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	List(ctx context.Context, db *gorm.DB) ([]Preference, error)
	Upsert(ctx context.Context, db *gorm.DB, prefs []Preference) error
}
