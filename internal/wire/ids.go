package wire

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDs are unix timestamp plus a random suffix. They are unique enough for
// the backend to use as idempotency keys; global uniqueness is the backend's
// problem, not ours.

func NewPaymentID(now time.Time) string {
	return newID("pay", now)
}

func NewTransferID(now time.Time) string {
	return newID("xfer", now)
}

func NewTapID(now time.Time) string {
	return newID("tap", now)
}

func newID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%s", prefix, now.Unix(), suffix)
}
