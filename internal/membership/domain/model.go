package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentTypeCard is the only payment type Stripe contributions are recorded with.
const PaymentTypeCard = "card"

// Contribution is a dues record in the membership application.
type Contribution struct {
	ID          snowflake.ID    `gorm:"column:id;primaryKey" json:"id"`
	MemberID    int64           `gorm:"column:member_id" json:"member_id"`
	TierID      int64           `gorm:"column:type_id" json:"type_id"`
	Amount      decimal.Decimal `gorm:"column:amount" json:"amount"`
	PaymentType string          `gorm:"column:payment_type" json:"payment_type"`
	IntentID    string          `gorm:"column:intent_id" json:"intent_id"`
	BeginDate   time.Time       `gorm:"column:begin_date" json:"begin_date"`
	// EndDate is nil for donations, they do not extend membership.
	EndDate   *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (Contribution) TableName() string { return "contributions" }

// ContributionRequest carries the fields a verified payment contributes.
type ContributionRequest struct {
	MemberID    int64
	TierID      int64
	Amount      decimal.Decimal
	PaymentType string
	IntentID    string
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Tier is the subset of a contribution type membership rules need.
type Tier struct {
	ID                int64  `gorm:"column:id"`
	Name              string `gorm:"column:name"`
	ExtendsMembership bool   `gorm:"column:extends_membership"`
}

type Repository interface {
	FindTier(ctx context.Context, db *gorm.DB, id int64) (*Tier, error)
	MemberExists(ctx context.Context, db *gorm.DB, id int64) (bool, error)
	LatestMembershipEnd(ctx context.Context, db *gorm.DB, memberID int64) (*time.Time, error)
	Insert(ctx context.Context, db *gorm.DB, c *Contribution) error
}

type Service interface {
	// ValidateContribution returns the rule violations of req, empty when it
	// may be persisted.
	ValidateContribution(ctx context.Context, req ContributionRequest) ([]FieldError, error)
	// PersistContribution stores req using tx. A second contribution for the
	// same intent fails with a duplicate key error.
	PersistContribution(ctx context.Context, tx *gorm.DB, req ContributionRequest) (Contribution, error)
}

var (
	ErrInvalidContribution = errors.New("invalid_contribution")
	ErrTierNotFound        = errors.New("contribution_type_not_found")
)
