package flows_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tapwire/internal/backend"
	"tapwire/internal/clock"
	"tapwire/internal/flows"
	"tapwire/internal/metrics"
	"tapwire/internal/nfc"
	"tapwire/internal/poller"
	"tapwire/internal/signing"
	"tapwire/internal/store/memory"
	"tapwire/internal/wire"
)

var testStart = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

type rig struct {
	factory *flows.Factory
	writer  *nfc.Emulated
	store   *memory.Store
	metrics *metrics.Counters
	clock   *clock.FakeClock
	signer  *signing.Signer
	mux     *http.ServeMux
}

func newSigner(t *testing.T) *signing.Signer {
	t.Helper()
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return signing.New(private)
}

func newRig(t *testing.T, opts ...func(*flows.Deps)) *rig {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := backend.NewClient(server.Client(), server.URL, "dev-1", "sess-1")
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}

	r := &rig{
		writer:  nfc.NewEmulated("test-writer"),
		store:   memory.New(),
		metrics: metrics.NewCounters(),
		clock:   clock.NewFake(testStart),
		signer:  newSigner(t),
		mux:     mux,
	}

	deps := flows.Deps{
		Writer:  r.writer,
		Backend: client,
		Signer:  r.signer,
		Identity: flows.Identity{
			UserID:      "user-self",
			DisplayName: "Self",
		},
		Store:     r.store,
		Clock:     r.clock,
		Metrics:   r.metrics,
		Poller:    poller.NewWithSleep(client, noSleep),
		Freshness: time.Minute,
		Currency:  "USD",
		Retention: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	r.factory = flows.NewFactory(deps)
	return r
}

// envelope round-trips a payload through the NDEF codec so handlers see
// exactly what a tag read would produce.
func envelope(t *testing.T, typ wire.Type, payload any) wire.Envelope {
	t.Helper()
	record, err := wire.Encode(typ, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, ok := wire.Decode(record)
	if !ok {
		t.Fatalf("decode own record")
	}
	return env
}

// lastWritten decodes the most recent NDEF message written to the device.
func lastWritten(t *testing.T, device *nfc.Emulated) wire.Envelope {
	t.Helper()
	written := device.Written()
	if len(written) == 0 {
		t.Fatalf("nothing written")
	}
	env, ok := wire.Decode(written[len(written)-1])
	if !ok {
		t.Fatalf("written message is not a valid record")
	}
	return env
}

func sign(t *testing.T, signer *signing.Signer, payload any) string {
	t.Helper()
	signature, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signature
}
