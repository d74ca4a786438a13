package flows_test

import (
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"tapwire/internal/nfc"
	"tapwire/internal/session"
	"tapwire/internal/signing"
	"tapwire/internal/taperr"
	"tapwire/internal/wire"
)

func merchantFlow(t *testing.T, r *rig, amount string) session.Flow {
	t.Helper()
	params := session.Params{Description: "lunch", OrderID: "order-7"}
	if amount != "" {
		params.Amount = decimal.RequireFromString(amount)
	}
	flow, err := r.factory.Flow(nfc.ModeMerchant, params)
	if err != nil {
		t.Fatalf("flow: %v", err)
	}
	return flow
}

func TestMerchantOpenPublishesSignedOffer(t *testing.T) {
	r := newRig(t)
	flow := merchantFlow(t, r, "25.00")

	record, err := flow.Open(t.Context())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	env, ok := wire.Decode(record)
	if !ok || env.Type != wire.TypePaymentOffer {
		t.Fatalf("opening payload is not a payment offer")
	}
	offer, err := env.Payment()
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if offer.MerchantID != "user-self" || offer.PaymentID == "" {
		t.Fatalf("offer missing identity: %+v", offer)
	}
	if offer.Amount == nil || !offer.Amount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("offer amount wrong: %v", offer.Amount)
	}
	if !offer.CreatedAt.Equal(testStart) {
		t.Fatalf("offer not stamped with clock time: %v", offer.CreatedAt)
	}
	if !signing.Verify(offer, offer.Signature, r.signer.PublicHex()) {
		t.Fatalf("published offer does not verify under device key")
	}
}

func TestMerchantOpenAmountOptional(t *testing.T) {
	r := newRig(t)
	record, err := merchantFlow(t, r, "").Open(t.Context())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	env, _ := wire.Decode(record)
	offer, err := env.Payment()
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if offer.Amount != nil {
		t.Fatalf("open-amount offer should omit amount, got %v", offer.Amount)
	}
}

func TestMerchantHandlePollsToSettlement(t *testing.T) {
	r := newRig(t)
	var polls atomic.Int32
	r.mux.HandleFunc("GET /v1/nfc/transactions/tx-1", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if polls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"transactionId":"tx-1","status":"PENDING"}`))
			return
		}
		_, _ = w.Write([]byte(`{"transactionId":"tx-1","status":"SUCCESS"}`))
	})

	flow := merchantFlow(t, r, "25.00")
	if _, err := flow.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if !flow.Accepts(wire.TypeResponse) || flow.Accepts(wire.TypePaymentOffer) {
		t.Fatalf("merchant must accept responses only")
	}

	result, err := flow.Handle(t.Context(), envelope(t, wire.TypeResponse, wire.Response{
		Status:        wire.StatusSuccess,
		TransactionID: "tx-1",
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.TransactionID != "tx-1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if polls.Load() != 3 {
		t.Fatalf("expected 3 polls, got %d", polls.Load())
	}
	if r.metrics.Snapshot()["payments_completed_total"] != 1 {
		t.Fatalf("completion not counted")
	}

	taps, err := r.store.ListTaps(t.Context())
	if err != nil || len(taps) != 1 {
		t.Fatalf("tap not recorded: %v %v", taps, err)
	}
	if taps[0].Status != wire.StatusSuccess || taps[0].Amount == nil {
		t.Fatalf("unexpected record %+v", taps[0])
	}
}

func TestMerchantHandleFailedResponse(t *testing.T) {
	r := newRig(t)
	flow := merchantFlow(t, r, "25.00")
	if _, err := flow.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	_, err := flow.Handle(t.Context(), envelope(t, wire.TypeResponse, wire.Response{
		Status:       wire.StatusFailed,
		ErrorMessage: "customer declined",
	}))
	if taperr.CodeOf(err) != taperr.CodeBackendFailure {
		t.Fatalf("expected backend_failure, got %v", err)
	}
	if r.metrics.Snapshot()["payments_failed_total"] != 1 {
		t.Fatalf("failure not counted")
	}
}

func TestMerchantHandleTimeout(t *testing.T) {
	r := newRig(t)
	r.mux.HandleFunc("GET /v1/nfc/transactions/tx-1", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transactionId":"tx-1","status":"PENDING"}`))
	})

	flow := merchantFlow(t, r, "25.00")
	if _, err := flow.Open(t.Context()); err != nil {
		t.Fatalf("open: %v", err)
	}

	_, err := flow.Handle(t.Context(), envelope(t, wire.TypeResponse, wire.Response{
		Status:        wire.StatusSuccess,
		TransactionID: "tx-1",
	}))
	if taperr.CodeOf(err) != taperr.CodeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if r.metrics.Snapshot()["poll_timeouts_total"] != 1 {
		t.Fatalf("timeout not counted")
	}
}
