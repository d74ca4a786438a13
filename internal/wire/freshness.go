package wire

import (
	"time"

	"tapwire/internal/taperr"
)

// Offers carry a createdAt; consumers must not act on stale ones. Allow a
// small amount of forward skew for devices with drifting clocks.
const maxForwardSkew = 30 * time.Second

func CheckFresh(createdAt, now time.Time, window time.Duration) error {
	if createdAt.IsZero() {
		return taperr.StalePayload("payload has no timestamp")
	}
	if createdAt.After(now.Add(maxForwardSkew)) {
		return taperr.StalePayload("payload timestamp is in the future")
	}
	if now.Sub(createdAt) > window {
		return taperr.StalePayload("payload expired")
	}
	return nil
}
