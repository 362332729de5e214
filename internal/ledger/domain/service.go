package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/galette-community/plugin-stripe/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RecordRequest struct {
	IntentID   string
	EventType  string
	Amount     decimal.Decimal
	Currency   string
	PayerName  string
	Comment    string
	RawPayload []byte
}

type ListRequest struct {
	// Order is "asc" or "desc" on received_at, desc when empty.
	Order    string
	Page     int
	PageSize int
}

type EntryView struct {
	Entry
	StateLabel string `json:"state_label"`
	// Duplicate marks an entry whose intent already appeared earlier on the page.
	Duplicate bool `json:"duplicate"`
}

type ListResponse struct {
	Entries  []EntryView         `json:"entries"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (snowflake.ID, error)
	IsAlreadyProcessed(ctx context.Context, intentID string) (bool, error)
	// Transition moves an entry out of StateNone. db may be a transaction.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, state State) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id snowflake.ID) (Entry, error)
	// CountByState returns how many entries sit in each state.
	CountByState(ctx context.Context) (map[State]int64, error)
	// ListStale returns entries still in StateNone received before cutoff,
	// oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Entry, error)
}

var (
	ErrNotFound          = errors.New("history_entry_not_found")
	ErrInvalidTransition = errors.New("invalid_state_transition")
	ErrInvalidIntent     = errors.New("invalid_intent_id")
)
