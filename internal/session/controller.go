package session

import (
	"context"
	"log"
	"sync"

	"tapwire/internal/clock"
	"tapwire/internal/logging"
	"tapwire/internal/metrics"
	"tapwire/internal/nfc"
	"tapwire/internal/taperr"
	"tapwire/internal/wire"
)

// Controller sequences the NFC hardware and dispatches detected payloads to
// the active mode's orchestrator. At most one mode is active at a time:
// enabling a mode always tears down the previous one first. All
// dependencies are injected; there is no package-level state.
type Controller struct {
	device  nfc.Device
	flows   FlowFactory
	logger  *log.Logger
	clock   clock.Clock
	metrics *metrics.Counters

	mu          sync.Mutex
	state       State
	mode        nfc.Mode
	cancel      context.CancelFunc
	lastOutcome *Outcome
}

type Dependencies struct {
	Device  nfc.Device
	Flows   FlowFactory
	Logger  *log.Logger
	Clock   clock.Clock
	Metrics *metrics.Counters
}

func NewController(deps Dependencies) *Controller {
	clk := deps.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	counters := deps.Metrics
	if counters == nil {
		counters = metrics.NewCounters()
	}
	return &Controller{
		device:  deps.Device,
		flows:   deps.Flows,
		logger:  deps.Logger,
		clock:   clk,
		metrics: counters,
		state:   StateInitializing,
	}
}

// Initialize checks hardware support once. Absent hardware is terminal;
// disabled hardware is recoverable via OS settings and re-checked on every
// EnableMode.
func (c *Controller) Initialize(ctx context.Context) error {
	caps, err := c.device.Capabilities(ctx)
	if err != nil {
		c.setState(StateUnsupported)
		return taperr.Wrap(taperr.CodeHardwareUnsupported, "query nfc capabilities", err)
	}
	if !caps.Supported {
		c.setState(StateUnsupported)
		return taperr.HardwareUnsupported("nfc is not available on this device")
	}
	c.setState(StateIdle)
	if !caps.Enabled {
		return taperr.HardwareDisabled("nfc is turned off")
	}
	return nil
}

func (c *Controller) EnableMode(ctx context.Context, mode nfc.Mode, params Params) error {
	c.StopCurrentOperation()

	c.mu.Lock()
	if c.state == StateUnsupported {
		c.mu.Unlock()
		return taperr.HardwareUnsupported("nfc is not available on this device")
	}
	c.mu.Unlock()

	caps, err := c.device.Capabilities(ctx)
	if err != nil {
		return taperr.Wrap(taperr.CodeHardwareUnsupported, "query nfc capabilities", err)
	}
	if !caps.Supported {
		c.setState(StateUnsupported)
		return taperr.HardwareUnsupported("nfc is not available on this device")
	}
	if !caps.Enabled {
		return taperr.HardwareDisabled("nfc is turned off")
	}

	flow, err := c.flows.Flow(mode, params)
	if err != nil {
		return err
	}

	events, err := c.device.Listen(ctx)
	if err != nil {
		return taperr.Wrap(taperr.CodeHardwareDisabled, "activate nfc listening", err)
	}

	if opening, err := flow.Open(ctx); err != nil {
		_ = c.device.Stop()
		return err
	} else if opening != nil {
		if err := c.device.Write(ctx, opening); err != nil {
			_ = c.device.Stop()
			return taperr.Wrap(taperr.CodeHardwareDisabled, "publish opening payload", err)
		}
	}

	// The loop must outlive the caller's request context; only
	// StopCurrentOperation or a terminal outcome ends it.
	loopCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.cancel = cancel
	c.state = StateModeActive
	c.mode = mode
	c.mu.Unlock()

	logging.Allowlist(c.logger, map[string]string{
		"event": "mode_enabled",
		"mode":  string(mode),
	})

	go c.run(loopCtx, mode, flow, events)
	return nil
}

// StopCurrentOperation is idempotent, best-effort teardown. It never
// returns an error: hardware cleanup failures are swallowed because
// cleanup must not mask the error that triggered it.
func (c *Controller) StopCurrentOperation() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	if c.state != StateUnsupported && c.state != StateInitializing {
		c.state = StateIdle
		c.mode = ""
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = c.device.Stop()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{State: c.state, Mode: c.mode}
	if c.lastOutcome != nil {
		outcome := *c.lastOutcome
		snap.LastOutcome = &outcome
	}
	return snap
}

func (c *Controller) run(ctx context.Context, mode nfc.Mode, flow Flow, events <-chan nfc.TagEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			env, decoded := wire.Decode(event.Payload)
			if !decoded || !flow.Accepts(env.Type) {
				// Tags from unrelated systems may be present.
				c.metrics.IncTapsIgnored()
				logging.Allowlist(c.logger, map[string]string{
					"event": "tag_ignored",
					"mode":  string(mode),
				})
				continue
			}

			c.setState(StateDetected)
			c.metrics.IncTapsDetected()
			c.setState(StateProcessing)

			result, err := flow.Handle(ctx, env)
			c.finish(mode, result, err)
			return
		}
	}
}

func (c *Controller) finish(mode nfc.Mode, result Result, err error) {
	outcome := Outcome{
		Status:        OutcomeSuccess,
		Mode:          mode,
		TransactionID: result.TransactionID,
		Message:       result.Message,
		At:            c.clock.Now(),
	}
	if err != nil {
		code := taperr.CodeOf(err)
		if code == taperr.CodeUserDeclined {
			outcome.Status = OutcomeDeclined
		} else {
			outcome.Status = OutcomeError
		}
		outcome.Code = code
		outcome.Message = err.Error()
	}

	c.mu.Lock()
	c.lastOutcome = &outcome
	c.cancel = nil
	if c.state != StateUnsupported {
		c.state = StateIdle
		c.mode = ""
	}
	c.mu.Unlock()

	_ = c.device.Stop()

	logging.Allowlist(c.logger, map[string]string{
		"event":   "tap_finished",
		"mode":    string(mode),
		"outcome": string(outcome.Status),
		"error":   string(outcome.Code),
	})
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
