package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/galette-community/plugin-stripe/internal/clock"
	"github.com/galette-community/plugin-stripe/internal/config"
	ledgerdomain "github.com/galette-community/plugin-stripe/internal/ledger/domain"
	membershipdomain "github.com/galette-community/plugin-stripe/internal/membership/domain"
	obsmetrics "github.com/galette-community/plugin-stripe/internal/observability/metrics"
	stripeadapter "github.com/galette-community/plugin-stripe/internal/payment/adapters/stripe"
	paymentdomain "github.com/galette-community/plugin-stripe/internal/payment/domain"
	"github.com/galette-community/plugin-stripe/internal/ratelimit"
	referencedomain "github.com/galette-community/plugin-stripe/internal/reference/domain"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	pkgdb "github.com/galette-community/plugin-stripe/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	Config         *config.WebhookConfigHolder
	Settings       settingsdomain.Service
	Ledger         ledgerdomain.Service
	Membership     membershipdomain.Service
	Limiter        *ratelimit.Limiter         `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics        `optional:"true"`
	WebhookMetrics *obsmetrics.WebhookMetrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	config         *config.WebhookConfigHolder
	settings       settingsdomain.Service
	ledger         ledgerdomain.Service
	membership     membershipdomain.Service
	limiter        *ratelimit.Limiter
	obsMetrics     *obsmetrics.Metrics
	webhookMetrics *obsmetrics.WebhookMetrics
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("payment.webhook"),
		clock:          p.Clock,
		config:         p.Config,
		settings:       p.Settings,
		ledger:         p.Ledger,
		membership:     p.Membership,
		limiter:        p.Limiter,
		obsMetrics:     p.ObsMetrics,
		webhookMetrics: p.WebhookMetrics,
	}
}

// Handle reconciles one Stripe delivery. signatures holds every
// Stripe-Signature header line of the request.
func (s *Service) Handle(ctx context.Context, payload []byte, signatures []string) Result {
	start := s.clock.Now()
	eventType := string(paymentdomain.EventTypeOther)

	res := s.handle(ctx, payload, signatures, &eventType)

	s.obsMetrics.RecordWebhookEvent(ctx, eventType, string(res.Outcome))
	s.webhookMetrics.ObserveDelivery(string(res.Outcome), res.Status, s.clock.Now().Sub(start))
	return res
}

func (s *Service) handle(ctx context.Context, payload []byte, signatures []string, eventType *string) Result {
	cfg := s.config.Get()

	secret, err := s.settings.WebhookSecret(ctx)
	if err != nil {
		if errors.Is(err, settingsdomain.ErrNotConfigured) {
			s.log.Warn("webhook received but no webhook secret is configured")
			res := rejected("Forbidden")
			res.Outcome = OutcomeUnconfigured
			return res
		}
		s.log.Error("failed to load webhook secret", zap.Error(err))
		return internalError(OutcomeFailed)
	}

	age, err := stripeadapter.Verify(payload, signatures, secret, s.clock.Now(), cfg.SignatureTolerance)
	if err != nil {
		s.log.Warn("stripe signature rejected", zap.Error(err), zap.Int("headers", len(signatures)))
		return rejected(signatureMessage(err))
	}
	s.webhookMetrics.ObserveSignatureAge(age)

	n, err := stripeadapter.Parse(payload)
	switch {
	case errors.Is(err, paymentdomain.ErrEventIgnored):
		s.log.Debug("stripe event ignored", zap.String("event_id", n.EventID))
		return ok(OutcomeDiscarded)
	case err != nil:
		s.log.Warn("stripe event could not be read", zap.Error(err))
		return Result{Status: http.StatusBadRequest, Message: "Missing required arguments", Outcome: OutcomeInvalid}
	}
	*eventType = string(n.EventType)

	log := s.log.With(
		zap.String("event_id", n.EventID),
		zap.String("event_type", string(n.EventType)),
		zap.String("intent_id", n.IntentID),
	)

	raw, err := json.Marshal(n)
	if err != nil {
		log.Error("failed to encode notification", zap.Error(err))
		return internalError(OutcomeFailed)
	}
	entryID, err := s.ledger.Record(ctx, ledgerdomain.RecordRequest{
		IntentID:   n.IntentID,
		EventType:  string(n.EventType),
		Amount:     referencedomain.ToMajorUnits(n.AmountExpected, n.Currency),
		Currency:   n.Currency,
		PayerName:  n.PayerName,
		Comment:    n.Description,
		RawPayload: raw,
	})
	if err != nil {
		log.Error("failed to record history entry", zap.Error(err))
		return internalError(OutcomeFailed)
	}
	log = log.With(zap.String("entry_id", entryID.String()))

	token, locked, err := s.limiter.TryLockIntent(ctx, n.IntentID, cfg.IntentLockTTL)
	if err != nil {
		// The unique indexes still close the race, redis is only a shortcut.
		log.Warn("intent lock unavailable, continuing without it", zap.Error(err))
		locked = true
	}
	if !locked {
		log.Warn("another delivery of this intent is in flight")
		s.finish(ctx, log, entryID, ledgerdomain.StateIncomplete)
		res := internalError(OutcomeInFlight)
		res.Message = "in flight"
		return res.WithEntry(entryID, ledgerdomain.StateIncomplete)
	}
	defer func() {
		if token == "" {
			return
		}
		if err := s.limiter.ReleaseIntent(context.WithoutCancel(ctx), n.IntentID, token); err != nil {
			log.Warn("failed to release intent lock", zap.Error(err))
		}
	}()

	return s.reconcile(ctx, log, n, entryID, cfg)
}

func (s *Service) reconcile(ctx context.Context, log *zap.Logger, n paymentdomain.Notification, entryID snowflake.ID, cfg config.WebhookConfig) Result {
	processed, err := s.ledger.IsAlreadyProcessed(ctx, n.IntentID)
	if err != nil {
		log.Error("idempotency check failed", zap.Error(err))
		s.finish(ctx, log, entryID, ledgerdomain.StateError)
		return internalError(OutcomeFailed).WithEntry(entryID, ledgerdomain.StateError)
	}
	if processed {
		log.Warn("payment notification already processed")
		s.finish(ctx, log, entryID, ledgerdomain.StateAlreadyDone)
		return ok(OutcomeAlreadyDone).WithEntry(entryID, ledgerdomain.StateAlreadyDone)
	}

	if n.Status != paymentdomain.StatusSucceeded {
		log.Warn("payment notification received but payment is not completed")
		s.finish(ctx, log, entryID, ledgerdomain.StateIncomplete)
		return internalError(OutcomeIncomplete).WithEntry(entryID, ledgerdomain.StateIncomplete)
	}

	if !n.IsGenuineContribution() {
		log.Info("payment is not a member contribution, kept in history only",
			zap.Int64("amount_received", n.AmountReceived),
			zap.Int64("amount_expected", n.AmountExpected),
		)
		return ok(OutcomeNotGenuine).WithEntry(entryID, ledgerdomain.StateNone)
	}

	memberID, _ := n.MemberID()
	tierID, _ := n.TierID()
	req := membershipdomain.ContributionRequest{
		MemberID:    memberID,
		TierID:      tierID,
		Amount:      referencedomain.ToMajorUnits(n.AmountReceived, n.Currency),
		PaymentType: membershipdomain.PaymentTypeCard,
		IntentID:    n.IntentID,
	}

	violations, err := s.membership.ValidateContribution(ctx, req)
	if err != nil {
		log.Error("contribution validation failed", zap.Error(err))
		s.finish(ctx, log, entryID, ledgerdomain.StateError)
		return internalError(OutcomeFailed).WithEntry(entryID, ledgerdomain.StateError)
	}
	if len(violations) > 0 {
		log.Error("contribution rejected", zap.Any("violations", violations))
		s.webhookMetrics.IncPersistFailure(obsmetrics.ValidationFailure(membershipdomain.ErrInvalidContribution))
		s.finish(ctx, log, entryID, ledgerdomain.StateError)
		return Result{
			Status:  cfg.PermanentFailureStatus,
			Message: messageInternalError,
			Outcome: OutcomeInvalidDues,
		}.WithEntry(entryID, ledgerdomain.StateError)
	}

	var contribution membershipdomain.Contribution
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contribution, err = s.membership.PersistContribution(ctx, tx, req)
		if err != nil {
			return err
		}
		return s.ledger.Transition(ctx, tx, entryID, ledgerdomain.StateProcessed)
	})
	if err != nil {
		s.webhookMetrics.IncPersistFailure(err)
		if pkgdb.IsDuplicateKeyErr(err) {
			log.Warn("payment recorded concurrently by another delivery", zap.Error(err))
			s.finish(ctx, log, entryID, ledgerdomain.StateAlreadyDone)
			return ok(OutcomeAlreadyDone).WithEntry(entryID, ledgerdomain.StateAlreadyDone)
		}
		log.Error("failed to store contribution", zap.Error(err))
		s.finish(ctx, log, entryID, ledgerdomain.StateError)
		return internalError(OutcomeFailed).WithEntry(entryID, ledgerdomain.StateError)
	}

	s.obsMetrics.RecordContributionCreated(ctx, n.Currency)
	log.Info("stripe payment registered as a contribution",
		zap.String("contribution_id", contribution.ID.String()),
		zap.Int64("member_id", memberID),
	)
	return ok(OutcomeProcessed).WithEntry(entryID, ledgerdomain.StateProcessed)
}

// finish moves the entry to a terminal state outside the reconciliation
// transaction. Failures are logged, the response is already decided.
func (s *Service) finish(ctx context.Context, log *zap.Logger, entryID snowflake.ID, state ledgerdomain.State) {
	if err := s.ledger.Transition(context.WithoutCancel(ctx), s.db, entryID, state); err != nil {
		log.Error("failed to update history entry state",
			zap.String("state", state.String()),
			zap.Error(err),
		)
	}
}

func signatureMessage(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrSignatureExpired):
		return "Stripe signature delayed for too many seconds"
	case errors.Is(err, paymentdomain.ErrSignatureMissing):
		return "Stripe signature missing"
	default:
		return "Stripe signature mismatch"
	}
}
