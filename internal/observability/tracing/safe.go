package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// Attribute keys that may carry payment secrets or personal data never leave
// the process.
var blockedAttributeKeys = map[attribute.Key]struct{}{
	"stripe.signature":      {},
	"stripe.secret_key":     {},
	"stripe.webhook_secret": {},
	"billing.email":         {},
	"billing.address":       {},
	"authorization":         {},
}

// ExtractContext pulls remote trace context from the inbound carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes with blocked keys or empty string values.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		if attr.Value.Type() == attribute.STRING && strings.TrimSpace(attr.Value.AsString()) == "" {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError strips error text that could echo a secret back into a span.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, marker := range []string{"sk_live_", "sk_test_", "whsec_", "rk_live_", "rk_test_"} {
		if strings.Contains(lower, marker) {
			return errors.New("redacted error")
		}
	}
	return err
}
