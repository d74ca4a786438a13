package logging

import (
	"bytes"
	"log"
	"testing"
)

func TestAllowlistFiltersAndOrders(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	Allowlist(logger, map[string]string{
		"error":       "backend",
		"event":       "tap_finished",
		"mode":        "customer",
		"merchant_id": "merchant-1",
		"amount":      "12.50",
	})

	got := buf.String()
	if got != "event=tap_finished mode=customer error=backend\n" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestAllowlistSkipsEmptyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	Allowlist(logger, map[string]string{"merchant_id": "merchant-1"})
	Allowlist(logger, map[string]string{"event": ""})
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	Allowlist(nil, map[string]string{"event": "x"})
}
