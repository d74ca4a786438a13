package nfc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const emulatedBuffer = 16

// Emulated is an in-memory NFC device. Writes are recorded and, when the
// device is linked to a peer, delivered to the peer as tag events. Tests
// and the agent's tag-injection endpoint use it in place of hardware.
type Emulated struct {
	mu        sync.Mutex
	name      string
	caps      Capabilities
	peer      *Emulated
	events    chan TagEvent
	listening bool
	written   [][]byte
}

func NewEmulated(name string) *Emulated {
	return &Emulated{
		name: name,
		caps: Capabilities{Supported: true, Enabled: true, ReaderMode: true, HCE: true},
	}
}

// NewLinkedPair returns two emulated devices held against each other: a
// write on one side surfaces as a tag event on the other.
func NewLinkedPair() (*Emulated, *Emulated) {
	a := NewEmulated("emulated-a")
	b := NewEmulated("emulated-b")
	a.peer = b
	b.peer = a
	return a, b
}

// SetCapabilities overrides the reported hardware capabilities, for tests
// exercising unsupported/disabled paths.
func (d *Emulated) SetCapabilities(caps Capabilities) {
	d.mu.Lock()
	d.caps = caps
	d.mu.Unlock()
}

func (d *Emulated) Capabilities(_ context.Context) (Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps, nil
}

func (d *Emulated) Listen(_ context.Context) (<-chan TagEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listening {
		return nil, ErrBusy
	}
	d.events = make(chan TagEvent, emulatedBuffer)
	d.listening = true
	return d.events, nil
}

func (d *Emulated) Write(_ context.Context, message []byte) error {
	d.mu.Lock()
	d.written = append(d.written, append([]byte(nil), message...))
	peer := d.peer
	d.mu.Unlock()

	if peer != nil {
		peer.Inject(message)
	}
	return nil
}

// Inject delivers a raw NDEF message to this device as if a tag had been
// detected. Dropped silently when nobody is listening or the buffer is
// full, matching how real radios lose tags that leave the field.
func (d *Emulated) Inject(message []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.listening || d.events == nil {
		return false
	}
	event := TagEvent{
		UID:     uuid.NewString(),
		Payload: append([]byte(nil), message...),
		At:      time.Now().UTC(),
	}
	select {
	case d.events <- event:
		return true
	default:
		return false
	}
}

func (d *Emulated) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.listening {
		return nil
	}
	d.listening = false
	close(d.events)
	d.events = nil
	return nil
}

// Written returns copies of every message written through this device, in
// order.
func (d *Emulated) Written() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.written))
	for i, msg := range d.written {
		out[i] = append([]byte(nil), msg...)
	}
	return out
}
