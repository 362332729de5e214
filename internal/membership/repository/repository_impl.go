package repository

import (
	"context"
	"time"

	"github.com/galette-community/plugin-stripe/internal/membership/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindTier(ctx context.Context, db *gorm.DB, id int64) (*domain.Tier, error) {
	var tier domain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, extends_membership FROM contribution_types WHERE id = ?`,
		id,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) MemberExists(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM members WHERE id = ?`,
		id,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) LatestMembershipEnd(ctx context.Context, db *gorm.DB, memberID int64) (*time.Time, error) {
	var rows []struct {
		EndDate *time.Time `gorm:"column:end_date"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT c.end_date
		 FROM contributions c
		 JOIN contribution_types ct ON ct.id = c.type_id
		 WHERE c.member_id = ? AND ct.extends_membership = ? AND c.end_date IS NOT NULL
		 ORDER BY c.end_date DESC
		 LIMIT 1`,
		memberID,
		true,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].EndDate, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Contribution) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO contributions (id, member_id, type_id, amount, payment_type, intent_id, begin_date, end_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.MemberID,
		c.TierID,
		c.Amount.StringFixed(2),
		c.PaymentType,
		c.IntentID,
		c.BeginDate,
		c.EndDate,
		c.CreatedAt,
	).Error
}
