package domain

import (
	"strconv"
	"strings"
)

// EventType is the kind of Stripe notification, reduced to what reconciliation
// distinguishes.
type EventType string

const (
	EventTypeOneTimePaymentSucceeded EventType = "payment_intent.succeeded"
	EventTypeInvoicePaymentSucceeded EventType = "invoice.payment_succeeded"
	EventTypeOther                   EventType = "other"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusOther     Status = "other"
)

// Metadata keys written by checkout and read back from notifications.
const (
	MetaMemberID    = "member_id"
	MetaItemID      = "item_id"
	MetaItemName    = "item_name"
	MetaBillingName = "billing_name"

	// Keys used by payment forms of earlier plugin versions.
	MetaLegacyMemberID = "adherent_id"
	MetaLegacyItemID   = "contrib_id"
)

// Notification is a verified Stripe event projected onto the fields
// reconciliation uses. Amounts are in minor units.
type Notification struct {
	EventID        string            `json:"event_id,omitempty"`
	EventType      EventType         `json:"event_type"`
	IntentID       string            `json:"intent_id"`
	Status         Status            `json:"status"`
	AmountReceived int64             `json:"amount_received"`
	AmountExpected int64             `json:"amount_expected"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
	Description    string            `json:"description,omitempty"`
	PayerName      string            `json:"payer_name,omitempty"`
}

// MemberID returns the numeric member id from metadata.
func (n Notification) MemberID() (int64, bool) {
	return n.numericMeta(MetaMemberID)
}

// TierID returns the numeric contribution type id from metadata.
func (n Notification) TierID() (int64, bool) {
	return n.numericMeta(MetaItemID)
}

// IsGenuineContribution reports whether the payment completed in full for a
// known member.
func (n Notification) IsGenuineContribution() bool {
	if _, ok := n.MemberID(); !ok {
		return false
	}
	return n.Status == StatusSucceeded && n.AmountReceived == n.AmountExpected
}

func (n Notification) numericMeta(key string) (int64, bool) {
	raw := strings.TrimSpace(n.Metadata[key])
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
