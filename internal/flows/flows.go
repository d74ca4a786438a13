package flows

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"tapwire/internal/backend"
	"tapwire/internal/clock"
	"tapwire/internal/logging"
	"tapwire/internal/metrics"
	"tapwire/internal/nfc"
	"tapwire/internal/poller"
	"tapwire/internal/session"
	"tapwire/internal/signing"
	"tapwire/internal/store"
	"tapwire/internal/taperr"
	"tapwire/internal/wire"
)

// Confirmer presents the user confirmation step for interactive modes. The
// headless default approves everything; an interactive frontend plugs in
// its own.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

type Prompt struct {
	Kind         string
	Counterparty string
	Amount       *decimal.Decimal
	Currency     string
	Message      string
}

type AutoApprove struct{}

func (AutoApprove) Confirm(context.Context, Prompt) (bool, error) { return true, nil }

type AutoDecline struct{}

func (AutoDecline) Confirm(context.Context, Prompt) (bool, error) { return false, nil }

// Haptics is the tactile cue hook; headless runs use the noop.
type Haptics interface {
	Success()
	Failure()
}

type NoopHaptics struct{}

func (NoopHaptics) Success() {}
func (NoopHaptics) Failure() {}

// Identity describes the local user as presented to tap counterparts.
type Identity struct {
	UserID      string
	DisplayName string
	Avatar      string
}

type SharingPrefs struct {
	SharePhoneNumber     bool
	ShareEmail           bool
	AllowPaymentRequests bool
	AllowDirectPayments  bool
}

type Deps struct {
	Writer    nfc.Writer
	Backend   *backend.Client
	Signer    *signing.Signer
	Identity  Identity
	Store     store.Store
	Clock     clock.Clock
	Metrics   *metrics.Counters
	Logger    *log.Logger
	Confirm   Confirmer
	Haptics   Haptics
	Poller    *poller.Poller
	Freshness time.Duration
	Currency  string
	Geo       *backend.Geo
	Prefs     SharingPrefs
	Retention time.Duration
}

type Factory struct {
	deps Deps
}

func NewFactory(deps Deps) *Factory {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCounters()
	}
	if deps.Confirm == nil {
		deps.Confirm = AutoApprove{}
	}
	if deps.Haptics == nil {
		deps.Haptics = NoopHaptics{}
	}
	if deps.Freshness <= 0 {
		deps.Freshness = time.Minute
	}
	if deps.Currency == "" {
		deps.Currency = "USD"
	}
	if deps.Retention <= 0 {
		deps.Retention = 24 * time.Hour
	}
	return &Factory{deps: deps}
}

func (f *Factory) Flow(mode nfc.Mode, params session.Params) (session.Flow, error) {
	switch mode {
	case nfc.ModeMerchant:
		return f.merchant(params), nil
	case nfc.ModeCustomer:
		return f.customer(), nil
	case nfc.ModePeer:
		if params.Amount.IsPositive() {
			return f.peerSend(params), nil
		}
		return f.peerReceive(), nil
	case nfc.ModeContact:
		if params.Share {
			flow, err := f.contactShare()
			if err != nil {
				return nil, err
			}
			return flow, nil
		}
		return f.contactJoin(), nil
	}
	return nil, taperr.InvalidPayload("unknown nfc mode")
}

func (f *Factory) currency(requested string) string {
	if requested != "" {
		return requested
	}
	return f.deps.Currency
}

// writeResponse closes the tap loop. On failure paths the write is
// best-effort: the counterpart may already be out of the field.
func (f *Factory) writeResponse(ctx context.Context, resp wire.Response) {
	resp.CreatedAt = f.deps.Clock.Now()
	message, err := wire.Encode(wire.TypeResponse, resp)
	if err == nil {
		err = f.deps.Writer.Write(ctx, message)
	}
	if err != nil {
		logging.Allowlist(f.deps.Logger, map[string]string{
			"event": "response_write_failed",
			"error": "nfc_write",
		})
	}
}

// recordTap appends local history. History is non-critical: storage errors
// are logged and swallowed.
func (f *Factory) recordTap(ctx context.Context, record store.TapRecord) {
	if f.deps.Store == nil {
		return
	}
	now := f.deps.Clock.Now()
	record.ID = wire.NewTapID(now)
	record.CreatedAt = now
	record.ExpiresAt = now.Add(f.deps.Retention)
	if err := f.deps.Store.AppendTap(ctx, record); err != nil {
		logging.Allowlist(f.deps.Logger, map[string]string{
			"event": "tap_record_failed",
			"error": "storage",
		})
	}
}

func (f *Factory) confirm(ctx context.Context, prompt Prompt) error {
	ok, err := f.deps.Confirm.Confirm(ctx, prompt)
	if err != nil {
		return taperr.Wrap(taperr.CodeInternal, "confirmation failed", err)
	}
	if !ok {
		return taperr.UserDeclined("declined by user")
	}
	return nil
}

func orMessage(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
