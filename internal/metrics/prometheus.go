package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics, named on the miner side of the same "stratum_"
// namespace the pool-side examples in this codebase's ecosystem use.
var (
	hashesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stratum_miner_hashes_total",
		Help: "Total number of double-SHA-256 header hashes computed",
	})

	sharesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stratum_miner_shares_total",
		Help: "Total number of shares submitted, by outcome",
	}, []string{"status"})

	hashRateMHs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stratum_miner_hashrate_mhs",
		Help: "Most recently reported hash rate in MH/s",
	})

	currentDifficulty = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stratum_miner_difficulty",
		Help: "Pool-assigned share difficulty currently in effect",
	})

	staleJobsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stratum_miner_stale_jobs_total",
		Help: "Total number of scan batches skipped because the job was stale",
	})
)

func init() {
	prometheus.MustRegister(hashesTotal)
	prometheus.MustRegister(sharesTotal)
	prometheus.MustRegister(hashRateMHs)
	prometheus.MustRegister(currentDifficulty)
	prometheus.MustRegister(staleJobsTotal)
}

// PrometheusSink reports snapshots into the package-level collectors above.
// Scraping is left to the caller: an http.Handler wired to
// promhttp.Handler() in cmd/stratumcore. The sink itself never owns an
// HTTP server.
type PrometheusSink struct {
	lastHashes    uint64
	lastAccepted  uint64
	lastRejected  uint64
	lastStaleJobs uint64
}

func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

// Report adds deltas since the previous call, since Snapshot carries
// cumulative totals but Prometheus counters only grow by Add.
func (s *PrometheusSink) Report(snap Snapshot) {
	if snap.Hashes > s.lastHashes {
		hashesTotal.Add(float64(snap.Hashes - s.lastHashes))
		s.lastHashes = snap.Hashes
	}
	if snap.Accepted > s.lastAccepted {
		sharesTotal.WithLabelValues("accepted").Add(float64(snap.Accepted - s.lastAccepted))
		s.lastAccepted = snap.Accepted
	}
	if snap.Rejected > s.lastRejected {
		sharesTotal.WithLabelValues("rejected").Add(float64(snap.Rejected - s.lastRejected))
		s.lastRejected = snap.Rejected
	}
	if snap.StaleJobs > s.lastStaleJobs {
		staleJobsTotal.Add(float64(snap.StaleJobs - s.lastStaleJobs))
		s.lastStaleJobs = snap.StaleJobs
	}

	hashRateMHs.Set(snap.MHashPerS)
	currentDifficulty.Set(snap.Difficulty)
}

func (s *PrometheusSink) Close() error { return nil }
