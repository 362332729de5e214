package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/galette-community/plugin-stripe/internal/clock"
	"github.com/galette-community/plugin-stripe/internal/config"
	"github.com/galette-community/plugin-stripe/internal/membership/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cfg   config.Config
	Clock clock.Clock
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	extension int
	clock     clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("membership.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		extension: p.Cfg.Membership.ExtensionMonths,
		clock:     p.Clock,
	}
}

func (s *Service) ValidateContribution(ctx context.Context, req domain.ContributionRequest) ([]domain.FieldError, error) {
	var errs []domain.FieldError

	if req.TierID <= 0 {
		errs = append(errs, fieldError("type_id", "required", "contribution type is required"))
	} else {
		tier, err := s.repo.FindTier(ctx, s.db, req.TierID)
		if err != nil {
			return nil, err
		}
		if tier == nil {
			errs = append(errs, fieldError("type_id", "not_found", "contribution type does not exist"))
		}
	}

	if req.MemberID <= 0 {
		errs = append(errs, fieldError("member_id", "required", "member is required"))
	} else {
		ok, err := s.repo.MemberExists(ctx, s.db, req.MemberID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs = append(errs, fieldError("member_id", "not_found", "member does not exist"))
		}
	}

	if !req.Amount.IsPositive() {
		errs = append(errs, fieldError("amount", "invalid", "amount must be positive"))
	}
	if req.PaymentType != domain.PaymentTypeCard {
		errs = append(errs, fieldError("payment_type", "invalid", "payment type must be card"))
	}
	if strings.TrimSpace(req.IntentID) == "" {
		errs = append(errs, fieldError("intent_id", "required", "payment intent is required"))
	}

	return errs, nil
}

func (s *Service) PersistContribution(ctx context.Context, tx *gorm.DB, req domain.ContributionRequest) (domain.Contribution, error) {
	if tx == nil {
		tx = s.db
	}

	tier, err := s.repo.FindTier(ctx, tx, req.TierID)
	if err != nil {
		return domain.Contribution{}, err
	}
	if tier == nil {
		return domain.Contribution{}, domain.ErrTierNotFound
	}

	now := s.clock.Now()
	contribution := domain.Contribution{
		ID:          s.genID.Generate(),
		MemberID:    req.MemberID,
		TierID:      req.TierID,
		Amount:      req.Amount,
		PaymentType: req.PaymentType,
		IntentID:    req.IntentID,
		BeginDate:   truncateDay(now),
		CreatedAt:   now,
	}

	if tier.ExtendsMembership && s.extension > 0 {
		// A renewal paid before the current period ends starts when it ends.
		latest, err := s.repo.LatestMembershipEnd(ctx, tx, req.MemberID)
		if err != nil {
			return domain.Contribution{}, err
		}
		if latest != nil && latest.After(contribution.BeginDate) {
			contribution.BeginDate = truncateDay(*latest)
		}
		end := contribution.BeginDate.AddDate(0, s.extension, 0)
		contribution.EndDate = &end
	}

	if err := s.repo.Insert(ctx, tx, &contribution); err != nil {
		return domain.Contribution{}, err
	}

	s.log.Info("contribution stored",
		zap.String("contribution_id", contribution.ID.String()),
		zap.Int64("member_id", contribution.MemberID),
		zap.Int64("type_id", contribution.TierID),
		zap.String("intent_id", contribution.IntentID),
	)
	return contribution, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fieldError(field, code, message string) domain.FieldError {
	return domain.FieldError{Field: field, Code: code, Message: message}
}
