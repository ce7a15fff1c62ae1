// Package metrics reports mining progress and outcome counters. The Sink
// abstraction and its file-backed and Prometheus-backed implementations
// generalize the ambient observability a logrus-based hash-rate logger
// always provided, carrying it beyond plain stdout logging.
package metrics

import "time"

// Snapshot is a point-in-time read of a mining session's counters,
// covering the accounting fields a live session tracks. One Snapshot is
// always reported unconditionally when a session ends, with StopReason
// set to why.
type Snapshot struct {
	Endpoint   string    `json:"endpoint"`
	Username   string    `json:"username"`
	Backend    string    `json:"backend"`
	StartedAt  time.Time `json:"started_at"`
	Uptime     float64   `json:"uptime_seconds"`
	Hashes     uint64    `json:"hashes"`
	Submitted  uint64    `json:"submitted"`
	Accepted   uint64    `json:"accepted"`
	Rejected   uint64    `json:"rejected"`
	AcceptRate float64   `json:"accept_rate"`
	RejectRate float64   `json:"reject_rate"`
	YieldRate  float64   `json:"yield_rate"`
	JobsSeen   uint64    `json:"jobs_seen"`
	StaleJobs  uint64    `json:"stale_jobs"`
	Difficulty float64   `json:"difficulty"`
	MHashPerS  float64   `json:"mhash_per_second"`
	StopReason string    `json:"stop_reason,omitempty"`
}

// Sink receives periodic and final snapshots. Implementations must be
// safe to call from the scanner task's goroutine.
type Sink interface {
	Report(Snapshot)
	Close() error
}

// Counters accumulates the raw counts a Snapshot is built from. All
// methods are safe for concurrent use; the scanner task owns the writes
// and the reporting goroutine owns the reads.
type Counters struct {
	hashes    uint64
	submitted uint64
	accepted  uint64
	rejected  uint64
}

func (c *Counters) AddHashes(n uint64)  { addUint64(&c.hashes, n) }
func (c *Counters) IncrSubmitted()      { addUint64(&c.submitted, 1) }
func (c *Counters) IncrAccepted()       { addUint64(&c.accepted, 1) }
func (c *Counters) IncrRejected()       { addUint64(&c.rejected, 1) }

func (c *Counters) Snapshot() (hashes, submitted, accepted, rejected uint64) {
	return loadUint64(&c.hashes), loadUint64(&c.submitted), loadUint64(&c.accepted), loadUint64(&c.rejected)
}
