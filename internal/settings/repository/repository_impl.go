package repository

import (
	"context"

	"github.com/galette-community/plugin-stripe/internal/settings/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Preference, error) {
	var prefs []domain.Preference
	err := db.WithContext(ctx).Raw(
		`SELECT name, value, updated_at
		 FROM stripe_preferences
		 ORDER BY name`,
	).Scan(&prefs).Error
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, prefs []domain.Preference) error {
	for _, pref := range prefs {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO stripe_preferences (name, value, updated_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (name)
			 DO UPDATE SET value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at`,
			pref.Name,
			pref.Value,
			pref.UpdatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}
