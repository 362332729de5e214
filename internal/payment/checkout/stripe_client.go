package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	paymentdomain "github.com/galette-community/plugin-stripe/internal/payment/domain"
	stripe "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

type intentParams struct {
	Amount         int64
	Currency       string
	Metadata       map[string]string
	Description    string
	IdempotencyKey string
}

// stripeClient holds the API backends. The secret key is read from the
// settings store on every checkout, so a stripe.Client is built per call.
type stripeClient struct {
	backends *stripe.Backends
}

func newStripeClient(log *zap.Logger, baseURL string, timeout time.Duration) *stripeClient {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		LeveledLogger:     log.Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
	}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.URL = stripe.String(baseURL)
	}
	return &stripeClient{backends: stripe.NewBackendsWithConfig(cfg)}
}

// createPaymentIntent creates a card-only PaymentIntent with the account's
// secret key.
func (c *stripeClient) createPaymentIntent(ctx context.Context, apiKey string, params intentParams) (*stripe.PaymentIntent, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, paymentdomain.ErrProviderUnavailable
	}

	req := &stripe.PaymentIntentCreateParams{
		Amount:             stripe.Int64(params.Amount),
		Currency:           stripe.String(strings.ToLower(params.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	if params.Description != "" {
		req.Description = stripe.String(params.Description)
	}
	keys := make([]string, 0, len(params.Metadata))
	for k := range params.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := params.Metadata[k]; v != "" {
			req.AddMetadata(k, v)
		}
	}
	if params.IdempotencyKey != "" {
		req.SetIdempotencyKey(params.IdempotencyKey)
	}

	client := stripe.NewClient(apiKey, stripe.WithBackends(c.backends))
	intent, err := client.V1PaymentIntents.Create(ctx, req)
	if err != nil {
		return nil, providerError(err)
	}
	if intent == nil || intent.ID == "" || intent.ClientSecret == "" {
		return nil, fmt.Errorf("%w: incomplete payment intent", paymentdomain.ErrProviderRejected)
	}
	return intent, nil
}

// providerError maps API failures onto the checkout taxonomy: Stripe-side
// and transport failures are unavailable, request errors are rejected.
func providerError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %v", paymentdomain.ErrProviderUnavailable, err)
	}
	message := strings.TrimSpace(stripeErr.Msg)
	if message == "" {
		message = string(stripeErr.Type)
	}
	if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s", paymentdomain.ErrProviderUnavailable, message)
	}
	return fmt.Errorf("%w: %s", paymentdomain.ErrProviderRejected, message)
}
