package session

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tapwire/internal/nfc"
	"tapwire/internal/taperr"
	"tapwire/internal/wire"
)

type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateModeActive   State = "mode_active"
	StateDetected     State = "detected"
	StateProcessing   State = "processing"
	StateUnsupported  State = "unsupported"
)

// Params carries the per-mode inputs from the caller. Amount set on peer
// mode selects the sending role; Share set on contact mode selects the
// hosting role.
type Params struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	OrderID     string
	Message     string
	Share       bool
}

type Result struct {
	TransactionID string
	Message       string
}

// Flow is one orchestrator: it may publish an opening payload when the mode
// activates, and it handles the first accepted incoming payload, which ends
// the tap session.
type Flow interface {
	Open(ctx context.Context) ([]byte, error)
	Accepts(t wire.Type) bool
	Handle(ctx context.Context, env wire.Envelope) (Result, error)
}

type FlowFactory interface {
	Flow(mode nfc.Mode, params Params) (Flow, error)
}

type OutcomeStatus string

const (
	OutcomeSuccess  OutcomeStatus = "success"
	OutcomeError    OutcomeStatus = "error"
	OutcomeDeclined OutcomeStatus = "declined"
)

// Outcome is the result of the most recent tap session. A decline is a
// normal exit, not an error.
type Outcome struct {
	Status        OutcomeStatus `json:"status"`
	Mode          nfc.Mode      `json:"mode"`
	Code          taperr.Code   `json:"code,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Message       string        `json:"message,omitempty"`
	At            time.Time     `json:"at"`
}

type Snapshot struct {
	State       State    `json:"state"`
	Mode        nfc.Mode `json:"mode,omitempty"`
	LastOutcome *Outcome `json:"last_outcome,omitempty"`
}
