package domain

import "errors"

var (
	ErrSignatureMissing = errors.New("signature_missing")
	ErrSignatureExpired = errors.New("signature_expired")
	ErrInvalidSignature = errors.New("invalid_signature")

	ErrEventIgnored   = errors.New("event_ignored")
	ErrInvalidEvent   = errors.New("invalid_event")
	ErrInvalidPayload = errors.New("invalid_payload")

	ErrTierUnavailable     = errors.New("price_tier_unavailable")
	ErrAmountBelowMinimum  = errors.New("amount_below_minimum")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrMemberRequired      = errors.New("member_required")
	ErrSpamDetected        = errors.New("spam_detected")
	ErrRateLimited         = errors.New("rate_limited")
	ErrProviderRejected    = errors.New("payment_provider_rejected")
	ErrProviderUnavailable = errors.New("payment_provider_unavailable")
)
