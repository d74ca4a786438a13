package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"tapwire/internal/backend"
	"tapwire/internal/taperr"
)

type scriptedClient struct {
	calls   int
	results []func() (*backend.StatusResult, error)
}

func (c *scriptedClient) TransactionStatus(_ context.Context, _ string) (*backend.StatusResult, error) {
	idx := c.calls
	c.calls++
	if idx >= len(c.results) {
		idx = len(c.results) - 1
	}
	return c.results[idx]()
}

func pending() func() (*backend.StatusResult, error) {
	return func() (*backend.StatusResult, error) {
		return &backend.StatusResult{TransactionID: "tx-1", Status: backend.TxStatusPending}, nil
	}
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestAwaitSucceedsOnFinalAttempt(t *testing.T) {
	results := make([]func() (*backend.StatusResult, error), 0, 30)
	for i := 0; i < 29; i++ {
		results = append(results, pending())
	}
	results = append(results, func() (*backend.StatusResult, error) {
		return &backend.StatusResult{TransactionID: "tx-1", Status: backend.TxStatusSuccess}, nil
	})
	client := &scriptedClient{results: results}

	status, err := NewWithSleep(client, noSleep).Await(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if status.Status != backend.TxStatusSuccess {
		t.Fatalf("unexpected status %q", status.Status)
	}
	if client.calls != 30 {
		t.Fatalf("expected 30 attempts, got %d", client.calls)
	}
}

func TestAwaitTimesOutAfterBudget(t *testing.T) {
	client := &scriptedClient{results: []func() (*backend.StatusResult, error){pending()}}

	_, err := NewWithSleep(client, noSleep).Await(context.Background(), "tx-1")
	if taperr.CodeOf(err) != taperr.CodeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if client.calls != 30 {
		t.Fatalf("expected exactly 30 attempts, got %d", client.calls)
	}
}

func TestAwaitReportsFailedTransaction(t *testing.T) {
	client := &scriptedClient{results: []func() (*backend.StatusResult, error){
		pending(),
		func() (*backend.StatusResult, error) {
			return &backend.StatusResult{TransactionID: "tx-1", Status: backend.TxStatusFailed, Message: "insufficient funds"}, nil
		},
	}}

	_, err := NewWithSleep(client, noSleep).Await(context.Background(), "tx-1")
	if taperr.CodeOf(err) != taperr.CodeBackendFailure {
		t.Fatalf("expected backend_failure, got %v", err)
	}
	if err.Error() != "insufficient funds" {
		t.Fatalf("server message lost: %q", err.Error())
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", client.calls)
	}
}

func TestAwaitStatusErrorsCountAgainstBudget(t *testing.T) {
	client := &scriptedClient{results: []func() (*backend.StatusResult, error){
		func() (*backend.StatusResult, error) { return nil, errors.New("connection reset") },
	}}

	_, err := NewWithSleep(client, noSleep).Await(context.Background(), "tx-1")
	if taperr.CodeOf(err) != taperr.CodeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if client.calls != 30 {
		t.Fatalf("expected 30 attempts, got %d", client.calls)
	}
}

func TestAwaitStopsWhenContextCancelled(t *testing.T) {
	client := &scriptedClient{results: []func() (*backend.StatusResult, error){pending()}}
	poller := NewWithSleep(client, func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	})

	_, err := poller.Await(context.Background(), "tx-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", client.calls)
	}
}
