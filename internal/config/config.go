package config

import (
	"encoding/base64"
	"os"
	"strconv"
	"strings"
	"time"
)

type RateLimit struct {
	Max    int
	Window time.Duration
}

type Config struct {
	Address          string
	DataDir          string
	BackendURL       string
	DeviceName       string
	Currency         string
	PayloadFreshness time.Duration
	TapRetention     time.Duration
	SweepInterval    time.Duration
	BackendTimeout   time.Duration
	RateLimitHealth  RateLimit
	RateLimitV1      RateLimit
	RateLimitMode    RateLimit
	AutoConfirm      bool
	GeoLatitude      float64
	GeoLongitude     float64
	GeoEnabled       bool
}

const (
	DefaultPayloadFreshness = time.Minute
	MinPayloadFreshness     = 10 * time.Second
	MaxPayloadFreshness     = 5 * time.Minute
	DefaultTapRetention     = 24 * time.Hour
	DefaultSweepInterval    = 30 * time.Second
	DefaultBackendTimeout   = 15 * time.Second
)

func Load() Config {
	cfg := Config{
		Address:    ":8090",
		DataDir:    "data",
		BackendURL: "http://localhost:8080",
		DeviceName: "tapwire-device",
		Currency:   "USD",
		RateLimitHealth: RateLimit{
			Max:    60,
			Window: time.Minute,
		},
		RateLimitV1: RateLimit{
			Max:    30,
			Window: time.Minute,
		},
		RateLimitMode: RateLimit{
			Max:    10,
			Window: time.Minute,
		},
		PayloadFreshness: DefaultPayloadFreshness,
		TapRetention:     DefaultTapRetention,
		SweepInterval:    DefaultSweepInterval,
		BackendTimeout:   DefaultBackendTimeout,
		AutoConfirm:      true,
	}

	if value := os.Getenv("TW_ADDRESS"); value != "" {
		cfg.Address = value
	}
	if value := os.Getenv("TW_DATA_DIR"); value != "" {
		cfg.DataDir = value
	}
	if value := strings.TrimRight(os.Getenv("TW_BACKEND_URL"), "/"); value != "" {
		cfg.BackendURL = value
	}
	if value := os.Getenv("TW_DEVICE_NAME"); value != "" {
		cfg.DeviceName = value
	}
	if value := os.Getenv("TW_CURRENCY"); value != "" {
		cfg.Currency = strings.ToUpper(value)
	}

	if value := parseDurationEnv("TW_PAYLOAD_FRESHNESS"); value > 0 {
		cfg.PayloadFreshness = value
	}
	if cfg.PayloadFreshness < MinPayloadFreshness || cfg.PayloadFreshness > MaxPayloadFreshness {
		cfg.PayloadFreshness = DefaultPayloadFreshness
	}
	if value := parseDurationEnv("TW_TAP_RETENTION"); value > 0 {
		cfg.TapRetention = value
	}
	if value := parseDurationEnv("TW_SWEEP_INTERVAL"); value > 0 {
		cfg.SweepInterval = value
	}
	if value := parseDurationEnv("TW_BACKEND_TIMEOUT"); value > 0 {
		cfg.BackendTimeout = value
	}

	if value := parseIntEnv("TW_RATE_LIMIT_HEALTH_MAX"); value > 0 {
		cfg.RateLimitHealth.Max = int(value)
	}
	if value := parseDurationEnv("TW_RATE_LIMIT_HEALTH_WINDOW"); value > 0 {
		cfg.RateLimitHealth.Window = value
	}
	if value := parseIntEnv("TW_RATE_LIMIT_V1_MAX"); value > 0 {
		cfg.RateLimitV1.Max = int(value)
	}
	if value := parseDurationEnv("TW_RATE_LIMIT_V1_WINDOW"); value > 0 {
		cfg.RateLimitV1.Window = value
	}
	if value := parseIntEnv("TW_RATE_LIMIT_MODE_MAX"); value > 0 {
		cfg.RateLimitMode.Max = int(value)
	}
	if value := parseDurationEnv("TW_RATE_LIMIT_MODE_WINDOW"); value > 0 {
		cfg.RateLimitMode.Window = value
	}

	if value := os.Getenv("TW_AUTO_CONFIRM"); value != "" {
		cfg.AutoConfirm = value == "1" || strings.EqualFold(value, "true")
	}

	if lat, ok := parseFloatEnv("TW_GEO_LAT"); ok {
		if lng, ok := parseFloatEnv("TW_GEO_LNG"); ok {
			cfg.GeoLatitude = lat
			cfg.GeoLongitude = lng
			cfg.GeoEnabled = true
		}
	}

	return cfg
}

func parseDurationEnv(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return value
}

func parseIntEnv(key string) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseFloatEnv(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseBase64Env decodes a base64 env value, accepting both raw-URL and
// standard alphabets. Used for key material overrides.
func ParseBase64Env(key string) []byte {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err == nil {
		return decoded
	}
	decoded, err = base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	return decoded
}
