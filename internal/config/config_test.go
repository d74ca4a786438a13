package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Address != ":8090" {
		t.Fatalf("unexpected address %q", cfg.Address)
	}
	if cfg.PayloadFreshness != DefaultPayloadFreshness {
		t.Fatalf("unexpected freshness %v", cfg.PayloadFreshness)
	}
	if cfg.Currency != "USD" {
		t.Fatalf("unexpected currency %q", cfg.Currency)
	}
	if !cfg.AutoConfirm {
		t.Fatalf("auto confirm should default on")
	}
}

func TestPayloadFreshnessClamped(t *testing.T) {
	t.Setenv("TW_PAYLOAD_FRESHNESS", "2s")
	if cfg := Load(); cfg.PayloadFreshness != DefaultPayloadFreshness {
		t.Fatalf("sub-minimum freshness not clamped: %v", cfg.PayloadFreshness)
	}

	t.Setenv("TW_PAYLOAD_FRESHNESS", "1h")
	if cfg := Load(); cfg.PayloadFreshness != DefaultPayloadFreshness {
		t.Fatalf("over-maximum freshness not clamped: %v", cfg.PayloadFreshness)
	}

	t.Setenv("TW_PAYLOAD_FRESHNESS", "90s")
	if cfg := Load(); cfg.PayloadFreshness != 90*time.Second {
		t.Fatalf("in-range freshness rejected: %v", cfg.PayloadFreshness)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TW_BACKEND_URL", "https://api.example.com/")
	t.Setenv("TW_CURRENCY", "eur")
	t.Setenv("TW_AUTO_CONFIRM", "false")

	cfg := Load()
	if cfg.BackendURL != "https://api.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.BackendURL)
	}
	if cfg.Currency != "EUR" {
		t.Fatalf("currency not uppercased: %q", cfg.Currency)
	}
	if cfg.AutoConfirm {
		t.Fatalf("auto confirm override ignored")
	}
}

func TestGeoRequiresBothCoordinates(t *testing.T) {
	t.Setenv("TW_GEO_LAT", "51.5")
	if cfg := Load(); cfg.GeoEnabled {
		t.Fatalf("geo enabled with only latitude")
	}

	t.Setenv("TW_GEO_LNG", "-0.12")
	cfg := Load()
	if !cfg.GeoEnabled || cfg.GeoLatitude != 51.5 || cfg.GeoLongitude != -0.12 {
		t.Fatalf("geo not loaded: %+v", cfg)
	}
}
