package repository

import (
	"context"

	"github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Row, error) {
	var rows []domain.Row
	err := db.WithContext(ctx).Raw(
		`SELECT ct.id, ct.name, ct.extends_membership,
			CASE WHEN sp.type_id IS NULL THEN 0 ELSE 1 END AS has_price,
			sp.amount
		 FROM contribution_types ct
		 LEFT JOIN stripe_price_tiers sp ON sp.type_id = ct.id
		 ORDER BY ct.id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertMissing(ctx context.Context, db *gorm.DB, ids []int64) error {
	for _, id := range ids {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO stripe_price_tiers (type_id, amount)
			 VALUES (?, NULL)
			 ON CONFLICT (type_id) DO NOTHING`,
			id,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) UpsertAmount(ctx context.Context, db *gorm.DB, id int64, amount *decimal.Decimal) error {
	var value any
	if amount != nil {
		value = amount.StringFixed(2)
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO stripe_price_tiers (type_id, amount)
		 VALUES (?, ?)
		 ON CONFLICT (type_id)
		 DO UPDATE SET amount = EXCLUDED.amount`,
		id,
		value,
	).Error
}
