package poller

import (
	"context"
	"time"

	"tapwire/internal/backend"
	"tapwire/internal/taperr"
)

// The poll budget is deliberately fixed: 30 attempts one second apart, no
// backoff, no caller override. Exhaustion is reported as a timeout, which
// callers surface distinctly from a backend-reported failure.
const (
	pollInterval = time.Second
	maxAttempts  = 30
)

type StatusClient interface {
	TransactionStatus(ctx context.Context, transactionID string) (*backend.StatusResult, error)
}

type Poller struct {
	client StatusClient
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(client StatusClient) *Poller {
	return &Poller{
		client: client,
		sleep:  realSleep,
	}
}

// NewWithSleep injects the inter-attempt wait, so tests can run the full
// attempt budget without real delays.
func NewWithSleep(client StatusClient, sleep func(ctx context.Context, d time.Duration) error) *Poller {
	if sleep == nil {
		sleep = realSleep
	}
	return &Poller{client: client, sleep: sleep}
}

// Await polls the transaction until it reaches a final state. A FAILED
// status returns a backend failure carrying the server message; exhausting
// the budget returns taperr.CodeTimeout.
func (p *Poller) Await(ctx context.Context, transactionID string) (*backend.StatusResult, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := p.client.TransactionStatus(ctx, transactionID)
		if err == nil && result.Final() {
			if result.Status == backend.TxStatusFailed {
				message := result.Message
				if message == "" {
					message = "transaction failed"
				}
				return result, taperr.BackendFailure(message)
			}
			return result, nil
		}
		// Transient status errors count against the budget like
		// non-final states; there is no separate retry policy.
		if attempt == maxAttempts {
			break
		}
		if err := p.sleep(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
	return nil, taperr.Timeout("transaction status polling exhausted")
}

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
