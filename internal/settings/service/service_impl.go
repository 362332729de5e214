package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/galette-community/plugin-stripe/internal/clock"
	"github.com/galette-community/plugin-stripe/internal/config"
	refdomain "github.com/galette-community/plugin-stripe/internal/reference/domain"
	"github.com/galette-community/plugin-stripe/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Reference refdomain.Repository
	Cfg       config.Config
	Clock     clock.Clock
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	reference refdomain.Repository
	clock     clock.Clock
	encKey    []byte
}

func New(p Params) domain.Service {
	secret := strings.TrimSpace(p.Cfg.SettingsEncryptionSecret)
	var key []byte
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	return &Service{
		db:        p.DB,
		log:       p.Log.Named("settings.service"),
		repo:      p.Repo,
		reference: p.Reference,
		clock:     p.Clock,
		encKey:    key,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	prefs, err := s.repo.List(ctx, s.db)
	if err != nil {
		return domain.Settings{}, err
	}

	values := make(map[string]string, len(prefs))
	for _, p := range prefs {
		values[p.Name] = p.Value
	}

	privateKey, err := s.decrypt(values[domain.KeyPrivateKey])
	if err != nil {
		return domain.Settings{}, fmt.Errorf("private key: %w", err)
	}
	webhookSecret, err := s.decrypt(values[domain.KeyWebhookSecret])
	if err != nil {
		return domain.Settings{}, fmt.Errorf("webhook secret: %w", err)
	}

	return domain.Settings{
		PublicKey:       values[domain.KeyPublicKey],
		PrivateKey:      privateKey,
		WebhookSecret:   webhookSecret,
		Country:         refdomain.NormalizeCountry(values[domain.KeyCountry]),
		Currency:        refdomain.NormalizeCurrency(values[domain.KeyCurrency]),
		InactiveTierIDs: parseInactives(values[domain.KeyInactives]),
	}, nil
}

func (s *Service) View(ctx context.Context) (domain.View, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return domain.View{}, err
	}
	return toView(settings), nil
}

func (s *Service) PrivateKey(ctx context.Context) (string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	if settings.PrivateKey == "" {
		return "", domain.ErrNotConfigured
	}
	return settings.PrivateKey, nil
}

func (s *Service) WebhookSecret(ctx context.Context) (string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	if settings.WebhookSecret == "" {
		return "", domain.ErrNotConfigured
	}
	return settings.WebhookSecret, nil
}

func (s *Service) Currency(ctx context.Context) (string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	if settings.Currency == "" {
		return "", domain.ErrNotConfigured
	}
	return settings.Currency, nil
}

func (s *Service) IsZeroDecimalCurrency(code string) bool {
	return refdomain.IsZeroDecimalCurrency(code)
}

// Update validates req and stores it atomically. Validation problems are
// reported in the Result rather than as an error.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) domain.Result {
	input := redactSecrets(req)
	fieldErrors := s.validate(ctx, req)
	if len(fieldErrors) > 0 {
		current, err := s.View(ctx)
		return domain.Result{Settings: current, Input: input, Errors: fieldErrors, Err: err}
	}

	now := s.clock.Now()
	prefs := make([]domain.Preference, 0, 6)
	add := func(name, value string) {
		prefs = append(prefs, domain.Preference{Name: name, Value: value, UpdatedAt: now})
	}

	if req.PublicKey != nil {
		add(domain.KeyPublicKey, strings.TrimSpace(*req.PublicKey))
	}
	if req.PrivateKey != nil {
		enc, err := s.encrypt(strings.TrimSpace(*req.PrivateKey))
		if err != nil {
			return domain.Result{Input: input, Err: err}
		}
		add(domain.KeyPrivateKey, enc)
	}
	if req.WebhookSecret != nil {
		enc, err := s.encrypt(strings.TrimSpace(*req.WebhookSecret))
		if err != nil {
			return domain.Result{Input: input, Err: err}
		}
		add(domain.KeyWebhookSecret, enc)
	}
	if req.Country != nil {
		add(domain.KeyCountry, refdomain.NormalizeCountry(*req.Country))
	}
	if req.Currency != nil {
		add(domain.KeyCurrency, refdomain.NormalizeCurrency(*req.Currency))
	}
	if req.InactiveTierIDs != nil {
		add(domain.KeyInactives, formatInactives(*req.InactiveTierIDs))
	}

	if len(prefs) > 0 {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.repo.Upsert(ctx, tx, prefs)
		})
		if err != nil {
			s.log.Error("failed to store settings", zap.Error(err))
			return domain.Result{Input: input, Err: err}
		}
		names := make([]string, 0, len(prefs))
		for _, p := range prefs {
			names = append(names, p.Name)
		}
		s.log.Info("settings updated", zap.Strings("preferences", names))
	}

	view, err := s.View(ctx)
	return domain.Result{Settings: view, Input: input, Err: err}
}

func (s *Service) validate(ctx context.Context, req domain.UpdateRequest) []domain.FieldError {
	var errs []domain.FieldError
	add := func(field, code, msg string) {
		errs = append(errs, domain.FieldError{Field: field, Code: code, Message: msg})
	}

	if req.PublicKey != nil {
		if v := strings.TrimSpace(*req.PublicKey); v != "" && !strings.HasPrefix(v, "pk_") {
			add("public_key", "invalid_format", "publishable key must start with pk_")
		}
	}
	if req.PrivateKey != nil {
		if v := strings.TrimSpace(*req.PrivateKey); v != "" && !strings.HasPrefix(v, "sk_") && !strings.HasPrefix(v, "rk_") {
			add("private_key", "invalid_format", "secret key must start with sk_ or rk_")
		}
	}
	if req.WebhookSecret != nil {
		if v := strings.TrimSpace(*req.WebhookSecret); v != "" && !strings.HasPrefix(v, "whsec_") {
			add("webhook_secret", "invalid_format", "webhook signing secret must start with whsec_")
		}
	}
	if (req.PrivateKey != nil && strings.TrimSpace(*req.PrivateKey) != "") ||
		(req.WebhookSecret != nil && strings.TrimSpace(*req.WebhookSecret) != "") {
		if len(s.encKey) == 0 {
			add("private_key", "encryption_key_missing", "SETTINGS_ENCRYPTION_SECRET must be set to store secrets")
		}
	}
	if req.Country != nil {
		if _, err := s.reference.GetCountry(ctx, *req.Country); err != nil {
			add("country", "unsupported", "country is not supported by Stripe")
		}
	}
	if req.Currency != nil {
		if _, err := s.reference.GetCurrency(ctx, *req.Currency); err != nil {
			add("currency", "unsupported", "currency is not supported")
		}
	}
	if req.InactiveTierIDs != nil {
		for _, id := range *req.InactiveTierIDs {
			if id <= 0 {
				add("inactive_tier_ids", "invalid", "tier ids must be positive")
				break
			}
		}
	}
	return errs
}

func toView(s domain.Settings) domain.View {
	inactives := s.InactiveTierIDs
	if inactives == nil {
		inactives = []int64{}
	}
	return domain.View{
		PublicKey:        s.PublicKey,
		PrivateKeySet:    s.PrivateKey != "",
		WebhookSecretSet: s.WebhookSecret != "",
		Country:          s.Country,
		Currency:         s.Currency,
		InactiveTierIDs:  inactives,
		Configured:       s.Configured(),
	}
}

func redactSecrets(req domain.UpdateRequest) domain.UpdateRequest {
	blank := ""
	if req.PrivateKey != nil {
		req.PrivateKey = &blank
	}
	if req.WebhookSecret != nil {
		req.WebhookSecret = &blank
	}
	return req
}

// parseInactives reads the comma separated tier id list, skipping junk.
func parseInactives(raw string) []int64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	out := []int64{}
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

func formatInactives(ids []int64) string {
	seen := make(map[int64]struct{}, len(ids))
	uniq := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	parts := make([]string, 0, len(uniq))
	for _, id := range uniq {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
