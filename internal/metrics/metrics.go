// Package metrics exposes engine counters through a private prometheus registry.
// There is no HTTP endpoint; hosts export the registry to a textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"petquest.ai/internal/protocol"
)

const namespace = "petquest"

type Collector struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	instructions *prometheus.CounterVec
	tokens       *prometheus.CounterVec
	snapshots    prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Executed requests by type and result code",
		},
		[]string{"type", "code"},
	)
	c.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request execution time including the store transaction",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"type"},
	)
	c.instructions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions_total",
			Help:      "Instructions emitted by contract and kind",
		},
		[]string{"contract", "kind"},
	)
	c.tokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Reward token volume by instruction kind",
		},
		[]string{"kind"},
	)
	c.snapshots = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_total",
		Help:      "Snapshots written",
	})

	c.registry.MustRegister(c.requests, c.duration, c.instructions, c.tokens, c.snapshots)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RecordRequest counts one executed request. An empty code means success.
func (c *Collector) RecordRequest(reqType, code string, d time.Duration) {
	if code == "" {
		code = "OK"
	}
	c.requests.WithLabelValues(reqType, code).Inc()
	c.duration.WithLabelValues(reqType).Observe(d.Seconds())
}

func (c *Collector) RecordInstructions(instrs []protocol.Instruction) {
	for _, in := range instrs {
		c.instructions.WithLabelValues(in.Contract, in.Kind).Inc()
		if in.Contract == protocol.ContractLedger {
			c.tokens.WithLabelValues(in.Kind).Add(float64(in.Amount))
		}
	}
}

func (c *Collector) RecordSnapshot() { c.snapshots.Inc() }

// WriteTextfile writes the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
