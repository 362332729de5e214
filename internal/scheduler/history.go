package scheduler

import (
	"context"

	ledgerdomain "github.com/galette-community/plugin-stripe/internal/ledger/domain"
	obslogger "github.com/galette-community/plugin-stripe/internal/observability/logger"
	"go.uber.org/zap"
)

// HistoryStateJob publishes the number of history entries per state.
func (s *Scheduler) HistoryStateJob(ctx context.Context) error {
	counts, err := s.ledgerSvc.CountByState(ctx)
	if err != nil {
		return err
	}
	for state, count := range counts {
		s.metrics.SetHistoryState(state.String(), count)
	}
	return nil
}

// StaleHistoryJob reports entries that never left the unset state: deliveries
// that were not genuine or whose handling died halfway. Entries are not modified.
func (s *Scheduler) StaleHistoryJob(ctx context.Context) error {
	now := s.clock.Now()
	entries, err := s.ledgerSvc.ListStale(ctx, now.Add(-s.cfg.StaleThreshold), s.cfg.BatchSize)
	if err != nil {
		return err
	}

	s.metrics.SetStaleEntries(int64(len(entries)))
	if len(entries) == 0 {
		return nil
	}

	log := obslogger.WithContext(ctx, s.log)
	for _, entry := range entries {
		log.Warn("history entry stuck without state",
			zap.String("entry_id", entry.ID.String()),
			zap.String("intent_id", entry.IntentID),
			zap.String("event_type", entry.EventType),
			zap.Duration("age", now.Sub(entry.ReceivedAt)),
			zap.String("state", ledgerdomain.StateNone.String()),
		)
	}
	return nil
}
