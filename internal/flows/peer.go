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

// peerSendFlow publishes a signed transfer offer; the receiving device
// submits it to the backend and reports back, after which the sender polls
// the transaction to settlement.
type peerSendFlow struct {
	f      *Factory
	params session.Params
	offer  wire.TransferOffer
}

func (f *Factory) peerSend(params session.Params) *peerSendFlow {
	return &peerSendFlow{f: f, params: params}
}

func (p *peerSendFlow) Open(ctx context.Context) ([]byte, error) {
	deps := p.f.deps
	now := deps.Clock.Now()

	offer := wire.TransferOffer{
		SenderID:   deps.Identity.UserID,
		SenderKey:  deps.Signer.PublicHex(),
		Amount:     p.params.Amount,
		Currency:   p.f.currency(p.params.Currency),
		Message:    p.params.Message,
		TransferID: wire.NewTransferID(now),
		CreatedAt:  now,
	}
	signature, err := deps.Signer.Sign(offer)
	if err != nil {
		return nil, taperr.Wrap(taperr.CodeInternal, "sign transfer offer", err)
	}
	offer.Signature = signature
	p.offer = offer

	return wire.Encode(wire.TypeTransferOffer, offer)
}

func (p *peerSendFlow) Accepts(t wire.Type) bool { return t == wire.TypeResponse }

func (p *peerSendFlow) Handle(ctx context.Context, env wire.Envelope) (session.Result, error) {
	deps := p.f.deps

	resp, err := env.Response()
	if err != nil {
		return session.Result{}, taperr.InvalidPayload("malformed tap response")
	}

	if resp.Status != wire.StatusSuccess {
		deps.Haptics.Failure()
		p.record(ctx, wire.StatusFailed, resp.TransactionID, resp.ErrorMessage)
		return session.Result{}, taperr.BackendFailure(orMessage(resp.ErrorMessage, "transfer was rejected"))
	}
	if resp.TransactionID == "" {
		deps.Haptics.Failure()
		p.record(ctx, wire.StatusFailed, "", "response missing transaction id")
		return session.Result{}, taperr.InvalidPayload("success response missing transaction id")
	}

	status, err := deps.Poller.Await(ctx, resp.TransactionID)
	if err != nil {
		if taperr.CodeOf(err) == taperr.CodeTimeout {
			deps.Metrics.IncPollTimeouts()
		}
		deps.Haptics.Failure()
		p.record(ctx, wire.StatusFailed, resp.TransactionID, err.Error())
		return session.Result{}, err
	}

	deps.Metrics.IncTransfersCompleted()
	deps.Haptics.Success()
	p.record(ctx, wire.StatusSuccess, status.TransactionID, "")
	return session.Result{
		TransactionID: status.TransactionID,
		Message:       "Transfer sent",
	}, nil
}

func (p *peerSendFlow) record(ctx context.Context, status wire.Status, txID, detail string) {
	amount := p.offer.Amount
	p.f.recordTap(ctx, store.TapRecord{
		Mode:          "peer_send",
		Status:        status,
		TransactionID: txID,
		Amount:        &amount,
		Currency:      p.offer.Currency,
		Detail:        detail,
	})
}

// peerReceiveFlow accepts an incoming transfer offer, verifies and confirms
// it, submits it to the backend and writes the outcome back to the sender.
type peerReceiveFlow struct {
	f *Factory
}

func (f *Factory) peerReceive() *peerReceiveFlow { return &peerReceiveFlow{f: f} }

func (p *peerReceiveFlow) Open(context.Context) ([]byte, error) { return nil, nil }

func (p *peerReceiveFlow) Accepts(t wire.Type) bool { return t == wire.TypeTransferOffer }

func (p *peerReceiveFlow) Handle(ctx context.Context, env wire.Envelope) (session.Result, error) {
	deps := p.f.deps

	offer, err := env.Transfer()
	if err != nil {
		return session.Result{}, taperr.InvalidPayload("malformed transfer offer")
	}
	if offer.TransferID == "" || offer.SenderID == "" {
		return session.Result{}, taperr.InvalidPayload("transfer offer missing identifiers")
	}
	if !offer.Amount.IsPositive() {
		return session.Result{}, taperr.InvalidPayload("transfer amount must be positive")
	}
	if err := wire.CheckFresh(offer.CreatedAt, deps.Clock.Now(), deps.Freshness); err != nil {
		return session.Result{}, err
	}
	if !signing.Verify(offer, offer.Signature, offer.SenderKey) {
		deps.Metrics.IncSignatureRejects()
		return session.Result{}, taperr.InvalidSignature("invalid transfer data")
	}

	amount := offer.Amount
	prompt := Prompt{
		Kind:         "transfer",
		Counterparty: offer.SenderID,
		Amount:       &amount,
		Currency:     offer.Currency,
		Message:      offer.Message,
	}
	if err := p.f.confirm(ctx, prompt); err != nil {
		return session.Result{}, err
	}

	result, err := deps.Backend.ProcessTransfer(ctx, backend.TransferRequest{
		TransferID: offer.TransferID,
		SenderID:   offer.SenderID,
		Amount:     offer.Amount,
		Currency:   offer.Currency,
		Message:    offer.Message,
		Geo:        deps.Geo,
	})
	if err != nil {
		p.f.writeResponse(ctx, wire.Response{
			Status:       wire.StatusFailed,
			ErrorMessage: err.Error(),
		})
		deps.Haptics.Failure()
		p.record(ctx, offer, wire.StatusFailed, "", err.Error())
		return session.Result{}, err
	}

	p.f.writeResponse(ctx, wire.Response{
		Status:        wire.StatusSuccess,
		TransactionID: result.TransactionID,
	})
	deps.Metrics.IncTransfersCompleted()
	deps.Haptics.Success()
	p.record(ctx, offer, wire.StatusSuccess, result.TransactionID, "")
	return session.Result{
		TransactionID: result.TransactionID,
		Message:       "Transfer received",
	}, nil
}

func (p *peerReceiveFlow) record(ctx context.Context, offer wire.TransferOffer, status wire.Status, txID, detail string) {
	amount := offer.Amount
	p.f.recordTap(ctx, store.TapRecord{
		Mode:          "peer_receive",
		Status:        status,
		TransactionID: txID,
		Amount:        &amount,
		Currency:      offer.Currency,
		Counterparty:  offer.SenderID,
		Detail:        detail,
	})
}
