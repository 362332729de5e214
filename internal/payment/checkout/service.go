package checkout

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/galette-community/plugin-stripe/internal/config"
	obsmetrics "github.com/galette-community/plugin-stripe/internal/observability/metrics"
	paymentdomain "github.com/galette-community/plugin-stripe/internal/payment/domain"
	pricetierdomain "github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	"github.com/galette-community/plugin-stripe/internal/ratelimit"
	referencedomain "github.com/galette-community/plugin-stripe/internal/reference/domain"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Request struct {
	ItemID   int64           `json:"item_id"`
	Amount   decimal.Decimal `json:"amount"`
	MemberID *int64          `json:"member_id,omitempty"`

	BillingName    string `json:"billing_name"`
	BillingEmail   string `json:"billing_email"`
	BillingAddress string `json:"billing_address"`
	BillingZip     string `json:"billing_zip"`
	BillingCity    string `json:"billing_city"`
	BillingCountry string `json:"billing_country"`

	// Honeypot is a hidden form field, humans leave it empty.
	Honeypot string `json:"honeypot"`

	// ClientKey identifies the caller for rate limiting, usually its IP.
	ClientKey string `json:"-"`
}

type Response struct {
	IntentID       string          `json:"intent_id"`
	ClientSecret   string          `json:"client_secret"`
	PublishableKey string          `json:"publishable_key"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Settings   settingsdomain.Service
	PriceTiers pricetierdomain.Service
	Limiter    *ratelimit.Limiter  `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	settings   settingsdomain.Service
	priceTiers pricetierdomain.Service
	limiter    *ratelimit.Limiter
	obsMetrics *obsmetrics.Metrics
	stripe     *stripeClient
}

func NewService(p Params) *Service {
	return &Service{
		log:        p.Log.Named("payment.checkout"),
		settings:   p.Settings,
		priceTiers: p.PriceTiers,
		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,
		stripe:     newStripeClient(p.Log.Named("stripe.api"), p.Cfg.Stripe.APIBaseURL, p.Cfg.Stripe.Timeout),
	}
}

// CreateIntent validates a payment form and creates the Stripe PaymentIntent
// the browser confirms with the returned client secret.
func (s *Service) CreateIntent(ctx context.Context, req Request) (Response, error) {
	resp, err := s.createIntent(ctx, req)
	s.obsMetrics.RecordCheckoutIntent(ctx, checkoutOutcome(err))
	return resp, err
}

func (s *Service) createIntent(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Honeypot) != "" {
		s.log.Warn("checkout honeypot filled, dropping request", zap.String("client", req.ClientKey))
		return Response{}, paymentdomain.ErrSpamDetected
	}

	if err := s.allow(ctx, req.ClientKey); err != nil {
		return Response{}, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return Response{}, err
	}
	if !settings.Configured() {
		return Response{}, settingsdomain.ErrNotConfigured
	}

	tier, err := s.priceTiers.Get(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, pricetierdomain.ErrNotFound) {
			return Response{}, paymentdomain.ErrTierUnavailable
		}
		return Response{}, err
	}
	if !tier.Active || tier.Amount == nil {
		return Response{}, paymentdomain.ErrTierUnavailable
	}
	if req.MemberID == nil && !tier.IsDonation {
		return Response{}, paymentdomain.ErrMemberRequired
	}
	if !req.Amount.IsPositive() {
		return Response{}, paymentdomain.ErrInvalidAmount
	}
	if req.Amount.LessThan(*tier.Amount) {
		return Response{}, paymentdomain.ErrAmountBelowMinimum
	}

	currency := referencedomain.NormalizeCurrency(settings.Currency)
	metadata := map[string]string{
		paymentdomain.MetaItemID:      strconv.FormatInt(tier.ID, 10),
		paymentdomain.MetaItemName:    tier.Name,
		paymentdomain.MetaBillingName: strings.TrimSpace(req.BillingName),
		"billing_email":               strings.TrimSpace(req.BillingEmail),
		"billing_address":             strings.TrimSpace(req.BillingAddress),
		"billing_zip":                 strings.TrimSpace(req.BillingZip),
		"billing_city":                strings.TrimSpace(req.BillingCity),
		"billing_country":             strings.TrimSpace(req.BillingCountry),
	}
	if req.MemberID != nil {
		metadata[paymentdomain.MetaMemberID] = strconv.FormatInt(*req.MemberID, 10)
	}

	intent, err := s.stripe.createPaymentIntent(ctx, settings.PrivateKey, intentParams{
		Amount:         referencedomain.ToMinorUnits(req.Amount, currency),
		Currency:       currency,
		Metadata:       metadata,
		Description:    tier.Name,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		s.log.Error("failed to create payment intent", zap.Int64("item_id", tier.ID), zap.Error(err))
		return Response{}, err
	}

	s.log.Info("payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("item_id", tier.ID),
		zap.String("currency", currency),
	)
	return Response{
		IntentID:       intent.ID,
		ClientSecret:   intent.ClientSecret,
		PublishableKey: settings.PublicKey,
		Amount:         req.Amount,
		Currency:       currency,
	}, nil
}

func (s *Service) allow(ctx context.Context, clientKey string) error {
	if !s.limiter.Enabled() {
		return nil
	}
	res, err := s.limiter.AllowCheckout(ctx, clientKey)
	if err != nil {
		s.log.Warn("checkout rate limit unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		s.obsMetrics.RecordRateLimitDenied(ctx, "checkout", "client")
		return paymentdomain.ErrRateLimited
	}
	s.obsMetrics.RecordRateLimitAllowed(ctx, "checkout")
	return nil
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, paymentdomain.ErrSpamDetected):
		return "spam"
	case errors.Is(err, paymentdomain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, paymentdomain.ErrProviderRejected), errors.Is(err, paymentdomain.ErrProviderUnavailable):
		return "provider_error"
	default:
		return "rejected"
	}
}
