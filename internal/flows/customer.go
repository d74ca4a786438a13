package flows

import (
	"context"

	"tapwire/internal/backend"
	"tapwire/internal/session"
	"tapwire/internal/signing"
	"tapwire/internal/store"
	"tapwire/internal/taperr"
	"tapwire/internal/wire"
)

// customerFlow consumes a merchant's payment offer. The signature and
// freshness checks run before anything is shown to the user: a tampered or
// replayed offer is rejected without a confirmation prompt.
type customerFlow struct {
	f *Factory
}

func (f *Factory) customer() *customerFlow { return &customerFlow{f: f} }

func (c *customerFlow) Open(context.Context) ([]byte, error) { return nil, nil }

func (c *customerFlow) Accepts(t wire.Type) bool { return t == wire.TypePaymentOffer }

func (c *customerFlow) Handle(ctx context.Context, env wire.Envelope) (session.Result, error) {
	deps := c.f.deps

	offer, err := env.Payment()
	if err != nil {
		return session.Result{}, taperr.InvalidPayload("malformed payment offer")
	}
	if offer.PaymentID == "" || offer.MerchantID == "" {
		return session.Result{}, taperr.InvalidPayload("payment offer missing identifiers")
	}
	if err := wire.CheckFresh(offer.CreatedAt, deps.Clock.Now(), deps.Freshness); err != nil {
		return session.Result{}, err
	}
	if !signing.Verify(offer, offer.Signature, offer.MerchantKey) {
		deps.Metrics.IncSignatureRejects()
		return session.Result{}, taperr.InvalidSignature("invalid payment data")
	}

	prompt := Prompt{
		Kind:         "payment",
		Counterparty: offer.MerchantID,
		Amount:       offer.Amount,
		Currency:     offer.Currency,
		Message:      offer.Description,
	}
	if err := c.f.confirm(ctx, prompt); err != nil {
		return session.Result{}, err
	}

	result, err := deps.Backend.ProcessPayment(ctx, backend.PaymentRequest{
		PaymentID:   offer.PaymentID,
		MerchantID:  offer.MerchantID,
		Amount:      offer.Amount,
		Currency:    offer.Currency,
		Description: offer.Description,
		OrderID:     offer.OrderID,
		Geo:         deps.Geo,
	})
	if err != nil {
		c.f.writeResponse(ctx, wire.Response{
			Status:       wire.StatusFailed,
			ErrorMessage: err.Error(),
		})
		deps.Metrics.IncPaymentsFailed()
		deps.Haptics.Failure()
		c.record(ctx, offer, wire.StatusFailed, "", err.Error())
		return session.Result{}, err
	}

	c.f.writeResponse(ctx, wire.Response{
		Status:        wire.StatusSuccess,
		TransactionID: result.TransactionID,
	})
	deps.Metrics.IncPaymentsCompleted()
	deps.Haptics.Success()
	c.record(ctx, offer, wire.StatusSuccess, result.TransactionID, "")
	return session.Result{
		TransactionID: result.TransactionID,
		Message:       "Payment Successful",
	}, nil
}

func (c *customerFlow) record(ctx context.Context, offer wire.PaymentOffer, status wire.Status, txID, detail string) {
	c.f.recordTap(ctx, store.TapRecord{
		Mode:          "customer",
		Status:        status,
		TransactionID: txID,
		Amount:        offer.Amount,
		Currency:      offer.Currency,
		Counterparty:  offer.MerchantID,
		Detail:        detail,
	})
}
