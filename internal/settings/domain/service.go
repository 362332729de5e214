package domain

import (
	"context"
	"errors"
)

type Service interface {
	Get(ctx context.Context) (Settings, error)
	View(ctx context.Context) (View, error)
	PrivateKey(ctx context.Context) (string, error)
	WebhookSecret(ctx context.Context) (string, error)
	Currency(ctx context.Context) (string, error)
	IsZeroDecimalCurrency(code string) bool
	Update(ctx context.Context, req UpdateRequest) Result
}

// View is the admin-facing representation; secrets are never echoed.
type View struct {
	PublicKey        string  `json:"public_key"`
	PrivateKeySet    bool    `json:"private_key_set"`
	WebhookSecretSet bool    `json:"webhook_secret_set"`
	Country          string  `json:"country"`
	Currency         string  `json:"currency"`
	InactiveTierIDs  []int64 `json:"inactive_tier_ids"`
	Configured       bool    `json:"configured"`
}

// UpdateRequest carries a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	PublicKey       *string  `json:"public_key,omitempty"`
	PrivateKey      *string  `json:"private_key,omitempty"`
	WebhookSecret   *string  `json:"webhook_secret,omitempty"`
	Country         *string  `json:"country,omitempty"`
	Currency        *string  `json:"currency,omitempty"`
	InactiveTierIDs *[]int64 `json:"inactive_tier_ids,omitempty"`
}

// TouchesCredentials reports whether req changes keys or account locale.
func (r UpdateRequest) TouchesCredentials() bool {
	return r.PublicKey != nil || r.PrivateKey != nil || r.WebhookSecret != nil ||
		r.Country != nil || r.Currency != nil
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is returned by Update. On rejection Input holds the submitted values
// (secrets blanked) so the caller can re-render the form without any
// server-side session state.
type Result struct {
	Settings View          `json:"settings"`
	Input    UpdateRequest `json:"input"`
	Errors   []FieldError  `json:"errors,omitempty"`
	Err      error         `json:"-"`
}

func (r Result) OK() bool {
	return r.Err == nil && len(r.Errors) == 0
}

var (
	ErrInvalidSettings      = errors.New("invalid_settings")
	ErrNotConfigured        = errors.New("stripe_not_configured")
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
	ErrDecryptFailed        = errors.New("settings_decrypt_failed")
)
