package ringoram

import "github.com/prometheus/client_golang/prometheus"

// metrics bundles the Prometheus collectors RingORAM updates on every
// access. Security-relevant conditions that spec.md §7 says must not be
// thrown as hard errors (stash pressure, dummy exhaustion) are surfaced here
// instead, so operators and tests can assert on them.
type metrics struct {
	stashSize       prometheus.Gauge
	evictions       prometheus.Counter
	earlyReshuffles prometheus.Counter
	decryptFailures prometheus.Counter
	pathFallbacks   prometheus.Counter
	stashOverflows  prometheus.Counter
}

// newMetrics registers a fresh set of collectors labeled with instanceID
// against reg. If reg is nil, a private registry is used so unrelated
// RingORAM instances (and tests) never collide on metric registration.
func newMetrics(reg prometheus.Registerer, instanceID string) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	labels := prometheus.Labels{"instance": instanceID}

	m := &metrics{
		stashSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ringoram_stash_size",
			Help:        "Current number of plaintext blocks held in the client-side stash.",
			ConstLabels: labels,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringoram_evictions_total",
			Help:        "Number of full-path evictions performed.",
			ConstLabels: labels,
		}),
		earlyReshuffles: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringoram_early_reshuffles_total",
			Help:        "Number of per-bucket early reshuffles triggered by dummy exhaustion.",
			ConstLabels: labels,
		}),
		decryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringoram_decrypt_failures_total",
			Help:        "Number of block decrypt failures recovered by returning the ciphertext unchanged.",
			ConstLabels: labels,
		}),
		pathFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringoram_path_fallbacks_total",
			Help:        "Number of times path arithmetic produced an out-of-range bucket and fell back to bucket 0.",
			ConstLabels: labels,
		}),
		stashOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringoram_stash_overflows_total",
			Help:        "Number of accesses that left the stash beyond its configured bound.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(m.stashSize, m.evictions, m.earlyReshuffles, m.decryptFailures, m.pathFallbacks, m.stashOverflows)
	return m
}
