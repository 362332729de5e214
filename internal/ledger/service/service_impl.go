package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/galette-community/plugin-stripe/internal/clock"
	"github.com/galette-community/plugin-stripe/internal/ledger/domain"
	obsmetrics "github.com/galette-community/plugin-stripe/internal/observability/metrics"
	"github.com/galette-community/plugin-stripe/pkg/db/option"
	"github.com/galette-community/plugin-stripe/pkg/db/pagination"
	"github.com/galette-community/plugin-stripe/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (snowflake.ID, error) {
	intentID := strings.TrimSpace(req.IntentID)
	if intentID == "" {
		return 0, domain.ErrInvalidIntent
	}

	payload := datatypes.JSON(req.RawPayload)
	if len(payload) == 0 {
		payload = datatypes.JSON("{}")
	}

	entry := domain.Entry{
		ID:            s.genID.Generate(),
		ReceivedAt:    s.clock.Now(),
		IntentID:      intentID,
		EventType:     req.EventType,
		Amount:        req.Amount,
		Currency:      strings.ToLower(strings.TrimSpace(req.Currency)),
		PayerName:     strings.TrimSpace(req.PayerName),
		Comment:       strings.TrimSpace(req.Comment),
		RawPayload:    payload,
		State:         domain.StateNone,
		CorrelationID: correlation.ExtractCorrelationID(ctx),
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		return 0, err
	}

	s.obsMetrics.RecordLedgerTransition(ctx, domain.StateNone.String())
	return entry.ID, nil
}

func (s *Service) IsAlreadyProcessed(ctx context.Context, intentID string) (bool, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return false, domain.ErrInvalidIntent
	}
	return s.repo.Exists(ctx, &domain.Entry{
		IntentID: intentID,
		State:    domain.StateProcessed,
	})
}

func (s *Service) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, state domain.State) error {
	if !state.Terminal() {
		return domain.ErrInvalidTransition
	}

	repo := s.repo.WithTrx(db)
	affected, err := repo.UpdateColumns(ctx,
		map[string]any{"state": state},
		option.WithWhere("id = ? AND state = ?", id, domain.StateNone),
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := repo.FindOne(ctx, &domain.Entry{ID: id})
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidTransition
	}

	s.log.Debug("history entry transitioned",
		zap.String("entry_id", id.String()),
		zap.String("state", state.String()),
	)
	s.obsMetrics.RecordLedgerTransition(ctx, state.String())
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	page := pagination.Pagination{Page: req.Page, PageSize: req.PageSize}.Normalize()
	dir := option.ParseDirection(req.Order, option.Desc)

	total, err := s.repo.Count(ctx, nil)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, err := s.repo.Find(ctx, nil,
		option.WithOrder("received_at", dir),
		option.WithOrder("id", dir),
		option.WithOffset(page.Offset()),
		option.WithLimit(page.PageSize),
	)
	if err != nil {
		return domain.ListResponse{}, err
	}

	seen := make(map[string]struct{}, len(items))
	entries := make([]domain.EntryView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		_, dup := seen[item.IntentID]
		seen[item.IntentID] = struct{}{}
		entries = append(entries, domain.EntryView{
			Entry:      *item,
			StateLabel: item.State.String(),
			Duplicate:  dup,
		})
	}

	return domain.ListResponse{
		Entries:  entries,
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Entry, error) {
	if id == 0 {
		return domain.Entry{}, domain.ErrNotFound
	}
	item, err := s.repo.FindOne(ctx, &domain.Entry{ID: id})
	if err != nil {
		return domain.Entry{}, err
	}
	if item == nil {
		return domain.Entry{}, domain.ErrNotFound
	}
	return *item, nil
}

var countedStates = []domain.State{
	domain.StateNone,
	domain.StateProcessed,
	domain.StateError,
	domain.StateIncomplete,
	domain.StateAlreadyDone,
}

func (s *Service) CountByState(ctx context.Context) (map[domain.State]int64, error) {
	counts := make(map[domain.State]int64, len(countedStates))
	for _, state := range countedStates {
		total, err := s.repo.Count(ctx, nil, option.WithWhere("state = ?", state))
		if err != nil {
			return nil, err
		}
		counts[state] = total
	}
	return counts, nil
}

func (s *Service) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	items, err := s.repo.Find(ctx, nil,
		option.WithWhere("state = ? AND received_at < ?", domain.StateNone, cutoff),
		option.WithOrder("received_at", option.Asc),
		option.WithLimit(limit),
	)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		if item != nil {
			entries = append(entries, *item)
		}
	}
	return entries, nil
}
