package nfc

import (
	"context"
	"errors"
	"time"
)

// Device wraps the platform NFC capability: tag detection surfaces as
// events on a channel, outbound NDEF messages go through Write. Exactly one
// Listen stream is active at a time; Stop tears it down.

type Mode string

const (
	ModeMerchant Mode = "merchant"
	ModeCustomer Mode = "customer"
	ModePeer     Mode = "peer"
	ModeContact  Mode = "contact"
)

func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case ModeMerchant, ModeCustomer, ModePeer, ModeContact:
		return Mode(raw), true
	}
	return "", false
}

type Capabilities struct {
	Supported  bool `json:"supported"`
	Enabled    bool `json:"enabled"`
	ReaderMode bool `json:"reader_mode"`
	HCE        bool `json:"hce"`
}

type TagEvent struct {
	UID     string
	Payload []byte
	At      time.Time
}

var (
	ErrNotListening = errors.New("device is not listening")
	ErrBusy         = errors.New("device is already listening")
)

type Device interface {
	Capabilities(ctx context.Context) (Capabilities, error)
	// Listen activates the radio and returns the event stream. The channel
	// is closed by Stop.
	Listen(ctx context.Context) (<-chan TagEvent, error)
	Write(ctx context.Context, message []byte) error
	// Stop is best-effort teardown and must be safe to call at any time,
	// including before Listen and more than once.
	Stop() error
}

// Writer is the write-back half of Device, all the orchestrators need.
type Writer interface {
	Write(ctx context.Context, message []byte) error
}
