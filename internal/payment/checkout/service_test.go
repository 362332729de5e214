package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/galette-community/plugin-stripe/internal/config"
	paymentdomain "github.com/galette-community/plugin-stripe/internal/payment/domain"
	pricetierdomain "github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap/zaptest"
)

type stubSettings struct {
	settingsdomain.Service
	settings settingsdomain.Settings
}

func (s stubSettings) Get(context.Context) (settingsdomain.Settings, error) {
	return s.settings, nil
}

type stubTiers struct {
	pricetierdomain.Service
	tiers map[int64]pricetierdomain.PriceTier
}

func (s stubTiers) Get(_ context.Context, id int64) (pricetierdomain.PriceTier, error) {
	tier, ok := s.tiers[id]
	if !ok {
		return pricetierdomain.PriceTier{}, pricetierdomain.ErrNotFound
	}
	return tier, nil
}

func decimalPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func int64Ptr(v int64) *int64 { return &v }

func newTestService(t *testing.T, baseURL string) *Service {
	t.Helper()
	return NewService(Params{
		Log: zaptest.NewLogger(t),
		Cfg: config.Config{Stripe: config.StripeConfig{APIBaseURL: baseURL, Timeout: time.Second}},
		Settings: stubSettings{settings: settingsdomain.Settings{
			PublicKey:     "pk_test_1",
			PrivateKey:    "sk_test_1",
			WebhookSecret: "whsec_1",
			Currency:      "eur",
		}},
		PriceTiers: stubTiers{tiers: map[int64]pricetierdomain.PriceTier{
			1: {ID: 1, Name: "Annual fee", Amount: decimalPtr("30"), Active: true},
			2: {ID: 2, Name: "Donation", Amount: decimalPtr("5"), IsDonation: true, Active: true},
			3: {ID: 3, Name: "Retired", Amount: decimalPtr("10"), Active: false},
			4: {ID: 4, Name: "Unpriced", IsDonation: true, Active: true},
		}},
	})
}

func TestCreateIntentPostsToStripe(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","client_secret":"pi_123_secret_abc","amount":3550,"currency":"eur","status":"requires_payment_method"}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	resp, err := svc.CreateIntent(context.Background(), Request{
		ItemID:      1,
		Amount:      decimal.RequireFromString("35.50"),
		MemberID:    int64Ptr(42),
		BillingName: "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", resp.IntentID)
	assert.Equal(t, "pi_123_secret_abc", resp.ClientSecret)
	assert.Equal(t, "pk_test_1", resp.PublishableKey)

	require.NotNil(t, got)
	assert.Equal(t, "/v1/payment_intents", got.URL.Path)
	assert.Equal(t, "Bearer sk_test_1", got.Header.Get("Authorization"))
	assert.Equal(t, stripe.APIVersion, got.Header.Get("Stripe-Version"))
	assert.NotEmpty(t, got.Header.Get("Idempotency-Key"))
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "3550", got.PostForm.Get("amount"))
	assert.Equal(t, "eur", got.PostForm.Get("currency"))
	assert.Equal(t, "card", got.PostForm.Get("payment_method_types[0]"))
	assert.Equal(t, "42", got.PostForm.Get("metadata[member_id]"))
	assert.Equal(t, "1", got.PostForm.Get("metadata[item_id]"))
	assert.Equal(t, "Annual fee", got.PostForm.Get("metadata[item_name]"))
	assert.Equal(t, "Annual fee", got.PostForm.Get("description"))
	assert.Equal(t, "Ada Lovelace", got.PostForm.Get("metadata[billing_name]"))
	assert.Empty(t, got.PostForm.Get("metadata[billing_city]"))
}

func TestCreateIntentRejections(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0")

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{name: "honeypot", req: Request{ItemID: 2, Amount: decimal.NewFromInt(5), Honeypot: "http://spam"}, want: paymentdomain.ErrSpamDetected},
		{name: "unknown tier", req: Request{ItemID: 9, Amount: decimal.NewFromInt(5)}, want: paymentdomain.ErrTierUnavailable},
		{name: "inactive tier", req: Request{ItemID: 3, Amount: decimal.NewFromInt(50), MemberID: int64Ptr(1)}, want: paymentdomain.ErrTierUnavailable},
		{name: "unpriced tier", req: Request{ItemID: 4, Amount: decimal.NewFromInt(5)}, want: paymentdomain.ErrTierUnavailable},
		{name: "anonymous membership", req: Request{ItemID: 1, Amount: decimal.NewFromInt(30)}, want: paymentdomain.ErrMemberRequired},
		{name: "below minimum", req: Request{ItemID: 1, Amount: decimal.RequireFromString("29.99"), MemberID: int64Ptr(1)}, want: paymentdomain.ErrAmountBelowMinimum},
		{name: "zero amount", req: Request{ItemID: 2, Amount: decimal.Zero}, want: paymentdomain.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateIntent(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateIntentNotConfigured(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0")
	svc.settings = stubSettings{settings: settingsdomain.Settings{PublicKey: "pk_test_1"}}

	_, err := svc.CreateIntent(context.Background(), Request{ItemID: 2, Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, settingsdomain.ErrNotConfigured)
}

func TestCreateIntentStripeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Amount must be at least 0.50 eur"}}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	_, err := svc.CreateIntent(context.Background(), Request{ItemID: 2, Amount: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, paymentdomain.ErrProviderRejected)
	assert.Contains(t, err.Error(), "Amount must be at least")
}

func TestCreateIntentStripeDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error"}}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	_, err := svc.CreateIntent(context.Background(), Request{ItemID: 2, Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderUnavailable)
}

func TestCreateIntentStripeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	svc := newTestService(t, srv.URL)
	_, err := svc.CreateIntent(context.Background(), Request{ItemID: 2, Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderUnavailable)
}

func TestCreateIntentSendsOneRequestWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"type":"idempotency_error","message":"Keys for idempotent requests can only be used once"}}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	_, err := svc.CreateIntent(context.Background(), Request{ItemID: 2, Amount: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, paymentdomain.ErrProviderRejected)
	assert.Equal(t, 1, calls)
}

func TestCheckoutOutcome(t *testing.T) {
	assert.Equal(t, "created", checkoutOutcome(nil))
	assert.Equal(t, "rate_limited", checkoutOutcome(paymentdomain.ErrRateLimited))
	assert.Equal(t, "rejected", checkoutOutcome(paymentdomain.ErrAmountBelowMinimum))
}
