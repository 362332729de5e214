package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	PersistFailureUniqueViolation      = "unique_violation"
	PersistFailureSerializationFailure = "serialization_failure"
	PersistFailureLockTimeout          = "db_lock_timeout"
	PersistFailureDeadlineExceeded     = "deadline_exceeded"
	PersistFailureValidation           = "validation"
	PersistFailureUnknown              = "unknown"
)

// WebhookMetrics exposes webhook reconciliation signals on the Prometheus
// registry scraped at /metrics.
type WebhookMetrics struct {
	deliveries      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
	signatureAge    prometheus.Observer
}

var (
	webhookMetricsOnce sync.Once
	webhookMetrics     *WebhookMetrics
)

// Webhook returns the singleton webhook metrics registry using config labels.
func Webhook(cfg Config) *WebhookMetrics {
	webhookMetricsOnce.Do(func() {
		webhookMetrics = newWebhookMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return webhookMetrics
}

// ResetWebhookMetricsForTest resets the webhook metrics singleton for tests.
func ResetWebhookMetricsForTest() {
	webhookMetricsOnce = sync.Once{}
	webhookMetrics = nil
}

func newWebhookMetrics(registerer prometheus.Registerer, cfg Config) *WebhookMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "galette-stripe"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stripe_webhook_deliveries_total",
		Help:        "Stripe webhook deliveries by outcome and response status.",
		ConstLabels: constLabels,
	}, []string{"outcome", "status_code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "stripe_webhook_duration_seconds",
		Help:        "Stripe webhook handling latency.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"outcome"})
	persistFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stripe_contribution_persist_failures_total",
		Help:        "Contribution persistence failures by classified reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	signatureAge := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "stripe_webhook_signature_age_seconds",
		Help:        "Absolute skew between the signed timestamp and the server clock.",
		Buckets:     []float64{0.1, 0.5, 1, 2, 3, 4, 5, 10, 30, 60, 300},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(deliveries, duration, persistFailures, signatureAge)

	return &WebhookMetrics{
		deliveries:      deliveries,
		duration:        duration,
		persistFailures: persistFailures,
		signatureAge:    signatureAge,
	}
}

// ObserveDelivery records the outcome of one webhook request.
func (m *WebhookMetrics) ObserveDelivery(outcome string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome = sanitizeLabel(outcome)
	m.deliveries.WithLabelValues(outcome, statusLabel(statusCode)).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *WebhookMetrics) ObserveSignatureAge(age time.Duration) {
	if m == nil {
		return
	}
	if age < 0 {
		age = -age
	}
	m.signatureAge.Observe(age.Seconds())
}

// IncPersistFailure classifies and counts a failed contribution write.
func (m *WebhookMetrics) IncPersistFailure(err error) {
	if m == nil || err == nil {
		return
	}
	m.persistFailures.WithLabelValues(ClassifyPersistFailure(err)).Inc()
}

// ClassifyPersistFailure maps a persistence error to a low-cardinality reason.
func ClassifyPersistFailure(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return PersistFailureDeadlineExceeded
	case isUniqueViolation(err):
		return PersistFailureUniqueViolation
	case hasPGCode(err, "40001"):
		return PersistFailureSerializationFailure
	case hasPGCode(err, "55P03"):
		return PersistFailureLockTimeout
	case errors.Is(err, errValidation):
		return PersistFailureValidation
	default:
		return PersistFailureUnknown
	}
}

// errValidation lets callers tag validation rejections without importing
// domain packages here.
var errValidation = errors.New("validation")

// ValidationFailure wraps err so ClassifyPersistFailure reports it as a
// validation rejection.
func ValidationFailure(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(errValidation, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 200 && code < 300:
		return "2xx"
	default:
		return "other"
	}
}

func sanitizeLabel(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "unknown"
	}
	return val
}
