package link

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boardlink",
			Subsystem: "serial",
			Name:      "frames_total",
			Help:      "Frames exchanged with the board.",
		},
		[]string{"direction"},
	)
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boardlink",
			Subsystem: "serial",
			Name:      "errors_total",
			Help:      "Link errors by kind.",
		},
		[]string{"kind"},
	)
	flushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boardlink",
			Subsystem: "serial",
			Name:      "input_flushes_total",
			Help:      "Input buffer flushes because of backlog.",
		},
	)
	degradedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "boardlink",
			Subsystem: "serial",
			Name:      "degraded",
			Help:      "1 when running without a board.",
		},
	)
)

// Error kinds in metrics.
const (
	errKindFraming   = "framing"
	errKindChecksum  = "checksum"
	errKindTransport = "transport"
	errKindWrite     = "write"
)

// RegisterMetrics registers link metrics with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, errorsTotal, flushesTotal, degradedGauge)
	})
}

func recordFrameSent() {
	framesTotal.WithLabelValues("sent").Inc()
}

func recordFrameReceived() {
	framesTotal.WithLabelValues("received").Inc()
}

func recordError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}

func recordFlush() {
	flushesTotal.Inc()
}

func recordDegraded(degraded bool) {
	if degraded {
		degradedGauge.Set(1)
	} else {
		degradedGauge.Set(0)
	}
}
