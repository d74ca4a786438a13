package logging

import (
	"log"
	"os"
	"strings"
)

var allowlistOrder = []string{
	"event",
	"method",
	"route",
	"status",
	"duration_ms",
	"mode",
	"type",
	"outcome",
	"ip_hash",
	"tap_id_hash",
	"tx_id_hash",
	"contact_id_hash",
	"count",
	"scope",
	"error",
	"version",
}

var allowlistKeys = map[string]struct{}{
	"event":           {},
	"method":          {},
	"route":           {},
	"status":          {},
	"duration_ms":     {},
	"mode":            {},
	"type":            {},
	"outcome":         {},
	"ip_hash":         {},
	"tap_id_hash":     {},
	"tx_id_hash":      {},
	"contact_id_hash": {},
	"count":           {},
	"scope":           {},
	"error":           {},
	"version":         {},
}

// Allowlist emits key=value pairs in a fixed order, dropping anything not on
// the allowlist. Tap payload contents and counterparty identifiers never
// reach the log unhashed.
func Allowlist(logger *log.Logger, fields map[string]string) {
	if logger == nil {
		return
	}
	var parts []string
	for _, key := range allowlistOrder {
		value, ok := fields[key]
		if !ok || value == "" {
			continue
		}
		if _, allowed := allowlistKeys[key]; !allowed {
			continue
		}
		parts = append(parts, key+"="+value)
	}
	if len(parts) == 0 {
		return
	}
	logger.Print(strings.Join(parts, " "))
}

func Fatal(logger *log.Logger, fields map[string]string) {
	Allowlist(logger, fields)
	os.Exit(1)
}
