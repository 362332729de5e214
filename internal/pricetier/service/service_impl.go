package service

import (
	"context"

	"github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Settings settingsdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	settings settingsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("pricetier.service"),
		repo:     p.Repo,
		settings: p.Settings,
	}
}

// List returns contribution types with their Stripe amounts. Types without an
// amount row get one created with a NULL amount.
func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.PriceTier, error) {
	tiers, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PriceTier, 0, len(tiers))
	for _, tier := range tiers {
		if req.OnlyActive && !tier.Active {
			continue
		}
		if req.Anonymous && !tier.IsDonation {
			continue
		}
		if req.OnlyPriced && tier.Amount == nil {
			continue
		}
		out = append(out, tier)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.PriceTier, error) {
	tiers, err := s.load(ctx)
	if err != nil {
		return domain.PriceTier{}, err
	}
	for _, tier := range tiers {
		if tier.ID == id {
			return tier, nil
		}
	}
	return domain.PriceTier{}, domain.ErrNotFound
}

func (s *Service) UpdateAmounts(ctx context.Context, updates []domain.AmountUpdate) ([]domain.PriceTier, error) {
	tiers, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]struct{}, len(tiers))
	for _, tier := range tiers {
		known[tier.ID] = struct{}{}
	}
	for _, u := range updates {
		if _, ok := known[u.ID]; !ok {
			return nil, domain.ErrNotFound
		}
		if u.Amount != nil && u.Amount.IsNegative() {
			return nil, domain.ErrInvalidAmount
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := s.repo.UpsertAmount(ctx, tx, u.ID, u.Amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("price tier amounts updated", zap.Int("count", len(updates)))

	return s.List(ctx, domain.ListRequest{})
}

func (s *Service) load(ctx context.Context) ([]domain.PriceTier, error) {
	rows, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var missing []int64
	tiers := make([]domain.PriceTier, 0, len(rows))
	for _, row := range rows {
		if !row.HasPrice {
			missing = append(missing, row.ID)
		}
		tier := domain.PriceTier{
			ID:         row.ID,
			Name:       row.Name,
			IsDonation: !row.ExtendsMembership,
			Active:     !settings.IsInactive(row.ID),
		}
		if row.Amount.Valid {
			amount := row.Amount.Decimal
			tier.Amount = &amount
		}
		tiers = append(tiers, tier)
	}

	if len(missing) > 0 {
		s.log.Info("creating missing price tier rows", zap.Int64s("type_ids", missing))
		if err := s.repo.InsertMissing(ctx, s.db, missing); err != nil {
			return nil, err
		}
	}
	return tiers, nil
}
