package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/galette-community/plugin-stripe/internal/clock"
	ledgerdomain "github.com/galette-community/plugin-stripe/internal/ledger/domain"
	obscontext "github.com/galette-community/plugin-stripe/internal/observability/context"
	obslogger "github.com/galette-community/plugin-stripe/internal/observability/logger"
	obsmetrics "github.com/galette-community/plugin-stripe/internal/observability/metrics"
	"github.com/galette-community/plugin-stripe/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobHistoryState = "history_state"
	JobStaleHistory = "stale_history"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log       *zap.Logger
	LedgerSvc ledgerdomain.Service
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    Config                       `optional:"true"`
	Limiter   *ratelimit.Limiter           `optional:"true"`
	Metrics   *obsmetrics.SchedulerMetrics `optional:"true"`
}

// Scheduler runs periodic checks over the history ledger.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	ledgerSvc ledgerdomain.Service
	limiter   *ratelimit.Limiter
	metrics   *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.LedgerSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		ledgerSvc: p.LedgerSvc,
		limiter:   p.Limiter,
		metrics:   p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	runID := s.genID.Generate().String()
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("job", name),
		zap.String("run_id", runID),
	)

	token, ok, err := s.limiter.TryLockJob(ctx, name, s.cfg.JobTimeout)
	if err != nil {
		s.metrics.IncJobError(name, obsmetrics.ErrLockUnavailable)
		log.Warn("job lock failed", zap.Error(err))
		return nil
	}
	if !ok {
		log.Debug("job locked by another instance")
		return nil
	}
	defer func() {
		if err := s.limiter.ReleaseJob(context.Background(), name, token); err != nil {
			log.Warn("job lock release failed", zap.Error(err))
		}
	}()

	s.metrics.IncJobRun(name)
	err = fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(name)
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobHistoryState, s.HistoryStateJob},
		{JobStaleHistory, s.StaleHistoryJob},
	}

	var err error
	for _, job := range jobs {
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		s.metrics.ObserveRunLoopLag(s.clock.Now().Sub(nextRun))
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
