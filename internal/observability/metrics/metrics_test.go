package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("event_type", "payment_intent.succeeded"),
		attribute.String("intent_id", "pi_123"),
		attribute.String("outcome", "processed"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("event_type"))
	assert.Contains(t, keys, attribute.Key("outcome"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordWebhookEvent(ctx, "payment_intent.succeeded", "processed")
		m.RecordLedgerTransition(ctx, "processed")
		m.RecordContributionCreated(ctx, "eur")
		m.RecordCheckoutIntent(ctx, "created")
		m.RecordRateLimitAllowed(ctx, "/checkout")
		m.RecordRateLimitDenied(ctx, "/checkout", "exhausted")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordWebhookEvent(context.Background(), "invoice.payment_succeeded", "already_done")
	})
}
