package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process-wide counters for the /metrics snapshot.
type Collector struct {
	totalRequests   atomic.Uint64
	errorRequests   atomic.Uint64
	rateLimited     atomic.Uint64
	totalDurationMs atomic.Uint64

	matchAttempts atomic.Uint64
	matchHits     atomic.Uint64
	matchMisses   atomic.Uint64
	jobRuns       atomic.Uint64
	jobFailures   atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.totalRequests.Add(1)
	if status >= 500 {
		c.errorRequests.Add(1)
	}
	if status == 429 {
		c.rateLimited.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

// RecordMatch counts one fingerprint identification or verification attempt.
func (c *Collector) RecordMatch(matched bool) {
	c.matchAttempts.Add(1)
	if matched {
		c.matchHits.Add(1)
		return
	}
	c.matchMisses.Add(1)
}

func (c *Collector) RecordJob(err error) {
	c.jobRuns.Add(1)
	if err != nil {
		c.jobFailures.Add(1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":      total,
		"errorsTotal":        c.errorRequests.Load(),
		"rateLimitedTotal":   c.rateLimited.Load(),
		"avgDurationMs":      avg,
		"totalDurationMs":    totalMs,
		"matchAttemptsTotal": c.matchAttempts.Load(),
		"matchHitsTotal":     c.matchHits.Load(),
		"matchMissesTotal":   c.matchMisses.Load(),
		"jobRunsTotal":       c.jobRuns.Load(),
		"jobFailuresTotal":   c.jobFailures.Load(),
	}
}
