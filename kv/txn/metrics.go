package txn

import "github.com/prometheus/client_golang/prometheus"

var (
	opCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kvstore",
			Subsystem: "txn",
			Name:      "op_total",
			Help:      "Counter of store operations.",
		}, []string{"type", "result"})

	depthGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kvstore",
			Subsystem: "txn",
			Name:      "depth",
			Help:      "Current nesting depth of the frame stack.",
		})

	baseKeysGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kvstore",
			Subsystem: "txn",
			Name:      "base_keys",
			Help:      "Number of keys in the committed base store.",
		})

	persistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kvstore",
			Subsystem: "txn",
			Name:      "persist_duration_seconds",
			Help:      "Bucketed histogram of persistence bridge calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"op", "result"})
)

func init() {
	prometheus.MustRegister(opCounter)
	prometheus.MustRegister(depthGauge)
	prometheus.MustRegister(baseKeysGauge)
	prometheus.MustRegister(persistDuration)
}

func resultLabel(err error) string {
	if err != nil {
		return "err"
	}
	return "ok"
}
