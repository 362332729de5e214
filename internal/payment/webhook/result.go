package webhook

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/galette-community/plugin-stripe/internal/ledger/domain"
)

// Outcome labels a delivery for logs and metrics.
type Outcome string

const (
	OutcomeRejected     Outcome = "rejected"
	OutcomeDiscarded    Outcome = "discarded"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeAlreadyDone  Outcome = "already_done"
	OutcomeIncomplete   Outcome = "incomplete"
	OutcomeNotGenuine   Outcome = "not_genuine"
	OutcomeInFlight     Outcome = "in_flight"
	OutcomeInvalidDues  Outcome = "invalid_contribution"
	OutcomeProcessed    Outcome = "processed"
	OutcomeFailed       Outcome = "failed"
	OutcomeUnconfigured Outcome = "unconfigured"
)

// Result is what the HTTP layer answers Stripe with.
type Result struct {
	Status  int
	Message string
	Outcome Outcome
	// EntryID is zero when no history entry was written.
	EntryID snowflake.ID
	// State is the entry state after handling, nil without an entry.
	State *ledgerdomain.State
}

func (r Result) WithEntry(id snowflake.ID, state ledgerdomain.State) Result {
	r.EntryID = id
	r.State = &state
	return r
}

const messageInternalError = "Internal error"

func rejected(message string) Result {
	return Result{Status: http.StatusForbidden, Message: message, Outcome: OutcomeRejected}
}

func ok(outcome Outcome) Result {
	return Result{Status: http.StatusOK, Message: "ok", Outcome: outcome}
}

func internalError(outcome Outcome) Result {
	return Result{Status: http.StatusInternalServerError, Message: messageInternalError, Outcome: outcome}
}
