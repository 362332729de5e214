package domain

import "time"

// Preference names as stored in stripe_preferences.
const (
	KeyPublicKey     = "stripe_pubkey"
	KeyPrivateKey    = "stripe_privkey"
	KeyWebhookSecret = "stripe_webhook_secret"
	KeyCountry       = "stripe_country"
	KeyCurrency      = "stripe_currency"
	KeyInactives     = "stripe_inactives"
)

// Preference is one stored key/value row. Secret values hold an encrypted envelope.
type Preference struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Preference) TableName() string { return "stripe_preferences" }

// Settings is the decrypted plugin configuration.
type Settings struct {
	PublicKey       string
	PrivateKey      string
	WebhookSecret   string
	Country         string
	Currency        string
	InactiveTierIDs []int64
}

// IsInactive reports whether tierID was disabled for Stripe payments.
func (s Settings) IsInactive(tierID int64) bool {
	for _, id := range s.InactiveTierIDs {
		if id == tierID {
			return true
		}
	}
	return false
}

// Configured reports whether payments can be taken and verified.
func (s Settings) Configured() bool {
	return s.PublicKey != "" && s.PrivateKey != "" && s.WebhookSecret != ""
}
