package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyPersistFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: PersistFailureDeadlineExceeded},
		{name: "gorm_duplicate", err: gorm.ErrDuplicatedKey, want: PersistFailureUniqueViolation},
		{name: "pg_unique", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: PersistFailureUniqueViolation},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: PersistFailureSerializationFailure},
		{name: "lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: PersistFailureLockTimeout},
		{name: "validation", err: ValidationFailure(errors.New("overlap")), want: PersistFailureValidation},
		{name: "unknown", err: errors.New("boom"), want: PersistFailureUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyPersistFailure(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveDelivery(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newWebhookMetrics(registry, Config{ServiceName: "galette-stripe", Environment: "test"})

	m.ObserveDelivery("processed", 200, 10*time.Millisecond)
	m.ObserveDelivery("processed", 200, 20*time.Millisecond)
	m.ObserveDelivery("rejected", 403, time.Millisecond)

	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("processed", "2xx")); got != 2 {
		t.Fatalf("expected 2 processed deliveries, got %v", got)
	}
	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("rejected", "4xx")); got != 1 {
		t.Fatalf("expected 1 rejected delivery, got %v", got)
	}
}

func TestNilWebhookMetricsAreSafe(t *testing.T) {
	var m *WebhookMetrics
	m.ObserveDelivery("processed", 200, time.Millisecond)
	m.ObserveSignatureAge(time.Second)
	m.IncPersistFailure(errors.New("boom"))
}
