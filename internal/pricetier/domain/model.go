package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceTier is a contribution type offered through Stripe with its price.
type PriceTier struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Amount is nil until an administrator prices the tier.
	Amount     *decimal.Decimal `json:"amount"`
	IsDonation bool             `json:"is_donation"`
	Active     bool             `json:"active"`
}

// Row is the joined contribution type and Stripe amount.
type Row struct {
	ID                int64               `gorm:"column:id"`
	Name              string              `gorm:"column:name"`
	ExtendsMembership bool                `gorm:"column:extends_membership"`
	HasPrice          bool                `gorm:"column:has_price"`
	Amount            decimal.NullDecimal `gorm:"column:amount"`
}

type ListRequest struct {
	OnlyActive bool
	// Anonymous callers are only offered donation tiers, membership fees need
	// a member to extend.
	Anonymous bool
	// OnlyPriced drops tiers with no amount yet.
	OnlyPriced bool
}

type AmountUpdate struct {
	ID     int64            `json:"id"`
	Amount *decimal.Decimal `json:"amount"`
}

type Repository interface {
	List(ctx context.Context, db *gorm.DB) ([]Row, error)
	InsertMissing(ctx context.Context, db *gorm.DB, ids []int64) error
	UpsertAmount(ctx context.Context, db *gorm.DB, id int64, amount *decimal.Decimal) error
}

type Service interface {
	List(ctx context.Context, req ListRequest) ([]PriceTier, error)
	Get(ctx context.Context, id int64) (PriceTier, error)
	UpdateAmounts(ctx context.Context, updates []AmountUpdate) ([]PriceTier, error)
}

var (
	ErrNotFound      = errors.New("price_tier_not_found")
	ErrInvalidAmount = errors.New("invalid_amount")
)
