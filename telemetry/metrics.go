// Prometheus metrics for protocol sessions.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sockit",
			Subsystem: "socket",
			Name:      "packets_sent_total",
			Help:      "Packets written to the transport.",
		},
		[]string{"type"},
	)
	packetsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sockit",
			Subsystem: "socket",
			Name:      "packets_received_total",
			Help:      "Packets translated from the transport stream.",
		},
		[]string{"type"},
	)
	translateErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sockit",
			Subsystem: "socket",
			Name:      "translate_errors_total",
			Help:      "Frame translation failures.",
		},
		[]string{"code"},
	)
	openSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sockit",
			Subsystem: "socket",
			Name:      "open_sessions",
			Help:      "Sessions currently considered connected.",
		},
	)
)

// RegisterMetrics registers the protocol metrics with the default
// registry. The record helpers call it lazily, so calling it directly
// is only needed to expose the metric names before any socket activity.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packetsSent, packetsReceived, translateErrors, openSessions)
	})
}

// RecordPacketSent counts one outbound packet by packet type.
func RecordPacketSent(packetType string) {
	RegisterMetrics()
	packetsSent.WithLabelValues(packetType).Inc()
}

// RecordPacketReceived counts one inbound packet by packet type.
func RecordPacketReceived(packetType string) {
	RegisterMetrics()
	packetsReceived.WithLabelValues(packetType).Inc()
}

// RecordTranslateError counts one translation failure by error code.
func RecordTranslateError(code string) {
	RegisterMetrics()
	translateErrors.WithLabelValues(code).Inc()
}

// SessionOpened moves the open-session gauge up.
func SessionOpened() {
	RegisterMetrics()
	openSessions.Inc()
}

// SessionClosed moves the open-session gauge down.
func SessionClosed() {
	RegisterMetrics()
	openSessions.Dec()
}
