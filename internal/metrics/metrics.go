package metrics

import "sync/atomic"

type Counters struct {
	tapsDetectedTotal       atomic.Uint64
	tapsIgnoredTotal        atomic.Uint64
	paymentsCompletedTotal  atomic.Uint64
	paymentsFailedTotal     atomic.Uint64
	transfersCompletedTotal atomic.Uint64
	contactsExchangedTotal  atomic.Uint64
	signatureRejectsTotal   atomic.Uint64
	pollTimeoutsTotal       atomic.Uint64
	tapsExpiredTotal        atomic.Uint64
	sweeperRunsTotal        atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) IncTapsDetected() {
	c.tapsDetectedTotal.Add(1)
}

func (c *Counters) IncTapsIgnored() {
	c.tapsIgnoredTotal.Add(1)
}

func (c *Counters) IncPaymentsCompleted() {
	c.paymentsCompletedTotal.Add(1)
}

func (c *Counters) IncPaymentsFailed() {
	c.paymentsFailedTotal.Add(1)
}

func (c *Counters) IncTransfersCompleted() {
	c.transfersCompletedTotal.Add(1)
}

func (c *Counters) IncContactsExchanged() {
	c.contactsExchangedTotal.Add(1)
}

func (c *Counters) IncSignatureRejects() {
	c.signatureRejectsTotal.Add(1)
}

func (c *Counters) IncPollTimeouts() {
	c.pollTimeoutsTotal.Add(1)
}

func (c *Counters) AddTapsExpired(count int) {
	if count <= 0 {
		return
	}
	c.tapsExpiredTotal.Add(uint64(count))
}

func (c *Counters) IncSweeperRuns() {
	c.sweeperRunsTotal.Add(1)
}

func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"taps_detected_total":       c.tapsDetectedTotal.Load(),
		"taps_ignored_total":        c.tapsIgnoredTotal.Load(),
		"payments_completed_total":  c.paymentsCompletedTotal.Load(),
		"payments_failed_total":     c.paymentsFailedTotal.Load(),
		"transfers_completed_total": c.transfersCompletedTotal.Load(),
		"contacts_exchanged_total":  c.contactsExchangedTotal.Load(),
		"signature_rejects_total":   c.signatureRejectsTotal.Load(),
		"poll_timeouts_total":       c.pollTimeoutsTotal.Load(),
		"taps_expired_total":        c.tapsExpiredTotal.Load(),
		"sweeper_runs_total":        c.sweeperRunsTotal.Load(),
	}
}
