package flows

import (
	"context"

	"github.com/shopspring/decimal"

	"tapwire/internal/session"
	"tapwire/internal/store"
	"tapwire/internal/taperr"
	"tapwire/internal/wire"
)

// merchantFlow publishes a signed payment offer and waits for the customer
// device to report the outcome. On a reported success the backend is polled
// until the transaction settles, so a tap never ends in a "probably paid"
// state.
type merchantFlow struct {
	f      *Factory
	params session.Params
	offer  wire.PaymentOffer
}

func (f *Factory) merchant(params session.Params) *merchantFlow {
	return &merchantFlow{f: f, params: params}
}

func (m *merchantFlow) Open(ctx context.Context) ([]byte, error) {
	deps := m.f.deps
	now := deps.Clock.Now()

	offer := wire.PaymentOffer{
		MerchantID:  deps.Identity.UserID,
		MerchantKey: deps.Signer.PublicHex(),
		Currency:    m.f.currency(m.params.Currency),
		Description: m.params.Description,
		OrderID:     m.params.OrderID,
		PaymentID:   wire.NewPaymentID(now),
		CreatedAt:   now,
	}
	if m.params.Amount.IsPositive() {
		amount := m.params.Amount
		offer.Amount = &amount
	}

	signature, err := deps.Signer.Sign(offer)
	if err != nil {
		return nil, taperr.Wrap(taperr.CodeInternal, "sign payment offer", err)
	}
	offer.Signature = signature
	m.offer = offer

	return wire.Encode(wire.TypePaymentOffer, offer)
}

func (m *merchantFlow) Accepts(t wire.Type) bool { return t == wire.TypeResponse }

func (m *merchantFlow) Handle(ctx context.Context, env wire.Envelope) (session.Result, error) {
	deps := m.f.deps

	resp, err := env.Response()
	if err != nil {
		return session.Result{}, taperr.InvalidPayload("malformed tap response")
	}

	if resp.Status != wire.StatusSuccess {
		deps.Metrics.IncPaymentsFailed()
		deps.Haptics.Failure()
		m.record(ctx, wire.StatusFailed, resp.TransactionID, resp.ErrorMessage)
		return session.Result{}, taperr.BackendFailure(orMessage(resp.ErrorMessage, "payment was rejected"))
	}
	if resp.TransactionID == "" {
		deps.Metrics.IncPaymentsFailed()
		deps.Haptics.Failure()
		m.record(ctx, wire.StatusFailed, "", "response missing transaction id")
		return session.Result{}, taperr.InvalidPayload("success response missing transaction id")
	}

	status, err := deps.Poller.Await(ctx, resp.TransactionID)
	if err != nil {
		if taperr.CodeOf(err) == taperr.CodeTimeout {
			deps.Metrics.IncPollTimeouts()
		}
		deps.Metrics.IncPaymentsFailed()
		deps.Haptics.Failure()
		m.record(ctx, wire.StatusFailed, resp.TransactionID, err.Error())
		return session.Result{}, err
	}

	deps.Metrics.IncPaymentsCompleted()
	deps.Haptics.Success()
	m.record(ctx, wire.StatusSuccess, status.TransactionID, "")
	return session.Result{
		TransactionID: status.TransactionID,
		Message:       "Payment received",
	}, nil
}

func (m *merchantFlow) record(ctx context.Context, status wire.Status, txID, detail string) {
	var amount *decimal.Decimal
	if m.offer.Amount != nil {
		copied := *m.offer.Amount
		amount = &copied
	}
	m.f.recordTap(ctx, store.TapRecord{
		Mode:          "merchant",
		Status:        status,
		TransactionID: txID,
		Amount:        amount,
		Currency:      m.offer.Currency,
		Detail:        detail,
	})
}
