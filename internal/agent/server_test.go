package agent

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tapwire/internal/backend"
	"tapwire/internal/config"
	"tapwire/internal/flows"
	"tapwire/internal/metrics"
	"tapwire/internal/nfc"
	"tapwire/internal/session"
	"tapwire/internal/signing"
	"tapwire/internal/store"
	"tapwire/internal/store/memory"
)

type testHarness struct {
	server *Server
	device *nfc.Emulated
	store  *memory.Store
}

func newHarness(t *testing.T, cfg config.Config) *testHarness {
	t.Helper()

	device := nfc.NewEmulated("test")
	st := memory.New()
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	client, err := backend.NewClient(nil, "http://127.0.0.1:1", "dev-1", "sess-1")
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}

	factory := flows.NewFactory(flows.Deps{
		Writer:   device,
		Backend:  client,
		Signer:   signing.New(private),
		Identity: flows.Identity{UserID: "user-1", DisplayName: "Tester"},
		Store:    st,
	})
	controller := session.NewController(session.Dependencies{
		Device: device,
		Flows:  factory,
	})
	if err := controller.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	server := NewServer(Dependencies{
		Config:     cfg,
		Controller: controller,
		Device:     device,
		Injector:   device,
		Store:      st,
		Metrics:    metrics.NewCounters(),
		Version:    "test",
	})
	return &testHarness{server: server, device: device, store: st}
}

func (h *testHarness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.server.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, config.Config{})
	rec := h.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["ok"] != true || payload["version"] != "test" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCapabilitiesAndState(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.do(t, http.MethodGet, "/v1/capabilities", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("capabilities status %d", rec.Code)
	}
	var caps nfc.Capabilities
	if err := json.Unmarshal(rec.Body.Bytes(), &caps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !caps.Supported || !caps.Enabled {
		t.Fatalf("unexpected capabilities %+v", caps)
	}

	rec = h.do(t, http.MethodGet, "/v1/state", "")
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != session.StateIdle {
		t.Fatalf("expected idle, got %+v", snap)
	}
}

func TestModeLifecycle(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.do(t, http.MethodPost, "/v1/mode", `{"mode":"customer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("enable status %d: %s", rec.Code, rec.Body.String())
	}
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != session.StateModeActive || snap.Mode != nfc.ModeCustomer {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	rec = h.do(t, http.MethodDelete, "/v1/mode", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("disable status %d", rec.Code)
	}
	snap = session.Snapshot{}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != session.StateIdle || snap.Mode != "" {
		t.Fatalf("expected idle after disable, got %+v", snap)
	}
}

func TestModeValidation(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.do(t, http.MethodPost, "/v1/mode", `{"mode":"teleport"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown mode status %d", rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/v1/mode", `{"mode":"merchant","amount":"-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative amount status %d", rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/v1/mode", `{"mode":"merchant","bogus":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status %d", rec.Code)
	}
}

func TestModeRejectedWhenHardwareDisabled(t *testing.T) {
	h := newHarness(t, config.Config{})
	h.device.SetCapabilities(nfc.Capabilities{Supported: true, Enabled: false})

	rec := h.do(t, http.MethodPost, "/v1/mode", `{"mode":"customer"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"] != "hardware_disabled" {
		t.Fatalf("unexpected error code %q", payload["error"])
	}
}

func TestContactsEndpoints(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.do(t, http.MethodGet, "/v1/contacts", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %q", rec.Code, rec.Body.String())
	}

	if err := h.store.SaveContact(context.Background(), store.Contact{UserID: "user-2", DisplayName: "Bob"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec = h.do(t, http.MethodGet, "/v1/contacts", "")
	var contacts []store.Contact
	if err := json.Unmarshal(rec.Body.Bytes(), &contacts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(contacts) != 1 || contacts[0].UserID != "user-2" {
		t.Fatalf("unexpected contacts %+v", contacts)
	}

	rec = h.do(t, http.MethodDelete, "/v1/contacts/user-2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status %d", rec.Code)
	}
	rec = h.do(t, http.MethodDelete, "/v1/contacts/user-2", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestInjectTag(t *testing.T) {
	h := newHarness(t, config.Config{})

	// Nobody listening: delivery is reported false, not an error.
	rec := h.do(t, http.MethodPost, "/v1/tag", `{"payload":"aGVsbG8="}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("inject status %d: %s", rec.Code, rec.Body.String())
	}
	var payload map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["delivered"] {
		t.Fatalf("expected delivered=false with no listener")
	}

	rec = h.do(t, http.MethodPost, "/v1/tag", `{"payload":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty payload status %d", rec.Code)
	}
}

func TestModeRateLimit(t *testing.T) {
	cfg := config.Config{
		RateLimitMode: config.RateLimit{Max: 1, Window: time.Minute},
	}
	h := newHarness(t, cfg)

	rec := h.do(t, http.MethodPost, "/v1/mode", `{"mode":"customer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first enable status %d", rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/v1/mode", `{"mode":"customer"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestMetricsz(t *testing.T) {
	h := newHarness(t, config.Config{})
	rec := h.do(t, http.MethodGet, "/metricsz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var counters map[string]uint64
	if err := json.Unmarshal(rec.Body.Bytes(), &counters); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := counters["taps_detected_total"]; !ok {
		t.Fatalf("missing counter keys: %+v", counters)
	}
}
