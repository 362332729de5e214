package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareTagsWebhookSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := withSpanRecorder(t)

	r := gin.New()
	r.Use(GinMiddleware())
	r.POST("/webhook", func(c *gin.Context) {
		c.Set("webhook_outcome", "processed")
		c.Header("X-History-Entry", "77")
		c.String(http.StatusOK, "ok")
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/webhook", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /webhook", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "processed", attrs["stripe.webhook.outcome"].AsString())
	assert.Equal(t, "77", attrs["stripe.history.entry_id"].AsString())
	assert.Equal(t, int64(http.StatusOK), attrs["http.response.status_code"].AsInt64())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestGinMiddlewareRedactsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := withSpanRecorder(t)

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/admin/settings", func(c *gin.Context) {
		_ = c.Error(errors.New("decrypt sk_test_123 failed"))
		c.Status(http.StatusInternalServerError)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/settings", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	for _, ev := range spans[0].Events() {
		for _, kv := range ev.Attributes {
			assert.NotContains(t, kv.Value.Emit(), "sk_test_123")
		}
	}
}
