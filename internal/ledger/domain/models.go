package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// State is the processing outcome of a webhook delivery. Values are stored
// as-is in stripe_history.state.
type State int16

const (
	StateNone      State = 0
	StateProcessed State = 1
	// 2 is reserved, nothing writes it.
	StateError       State = 3
	StateIncomplete  State = 4
	StateAlreadyDone State = 5
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateProcessed:
		return "processed"
	case StateError:
		return "error"
	case StateIncomplete:
		return "incomplete"
	case StateAlreadyDone:
		return "already_done"
	default:
		return "unknown"
	}
}

// Terminal reports whether s may be the target of a transition.
func (s State) Terminal() bool {
	switch s {
	case StateProcessed, StateError, StateIncomplete, StateAlreadyDone:
		return true
	}
	return false
}

// Entry records one received notification. Entries are never deleted.
type Entry struct {
	ID            snowflake.ID    `gorm:"column:id;primaryKey" json:"id"`
	ReceivedAt    time.Time       `gorm:"column:received_at" json:"received_at"`
	IntentID      string          `gorm:"column:intent_id" json:"intent_id"`
	EventType     string          `gorm:"column:event_type" json:"event_type"`
	Amount        decimal.Decimal `gorm:"column:amount" json:"amount"`
	Currency      string          `gorm:"column:currency" json:"currency"`
	PayerName     string          `gorm:"column:payer_name" json:"payer_name"`
	Comment       string          `gorm:"column:comment" json:"comment"`
	RawPayload    datatypes.JSON  `gorm:"column:raw_payload" json:"raw_payload"`
	State         State           `gorm:"column:state" json:"state"`
	CorrelationID string          `gorm:"column:correlation_id" json:"correlation_id,omitempty"`
}

func (Entry) TableName() string { return "stripe_history" }
