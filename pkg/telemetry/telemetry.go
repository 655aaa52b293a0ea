// Package telemetry keeps process-wide operational counters for the
// gateway. Counters are cheap atomics safe for the request path; Snapshot
// is what /health reports.
package telemetry

import "sync/atomic"

// Counters accumulates gateway activity since process start.
type Counters struct {
	Analyses        atomic.Int64
	DegradedSignals atomic.Int64
	CacheHits       atomic.Int64
	Anomalies       atomic.Int64
	Reports         atomic.Int64
	ReportsRejected atomic.Int64
	ModelReloads    atomic.Int64
}

// Global is the process-wide counter set.
var Global = &Counters{}

// Snapshot is a point-in-time copy for serialization.
type Snapshot struct {
	Analyses        int64 `json:"analyses"`
	DegradedSignals int64 `json:"degraded_signals"`
	CacheHits       int64 `json:"cache_hits"`
	Anomalies       int64 `json:"anomalies"`
	Reports         int64 `json:"reports"`
	ReportsRejected int64 `json:"reports_rejected"`
	ModelReloads    int64 `json:"model_reloads"`
}

// Read returns the current counter values.
func (c *Counters) Read() Snapshot {
	return Snapshot{
		Analyses:        c.Analyses.Load(),
		DegradedSignals: c.DegradedSignals.Load(),
		CacheHits:       c.CacheHits.Load(),
		Anomalies:       c.Anomalies.Load(),
		Reports:         c.Reports.Load(),
		ReportsRejected: c.ReportsRejected.Load(),
		ModelReloads:    c.ModelReloads.Load(),
	}
}
