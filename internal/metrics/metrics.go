// ABOUTME: Prometheus collectors for connection and send-path diagnostics
// ABOUTME: Counts rejected sends, malformed frames, closes, and reconnect attempts

// Package metrics exposes diagnostic counters for the synchronization engine.
// Failures that are absorbed inside the engine (rejected sends, malformed
// frames, transient closes) are counted here so they stay observable.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chatsync"

// Close kinds used as the "kind" label of ConnectionCloses.
const (
	CloseAuth      = "auth"
	CloseTransient = "transient"
	CloseNormal    = "normal"
)

// Collectors holds the engine's prometheus collectors.
type Collectors struct {
	FramesReceived   prometheus.Counter
	MalformedFrames  prometheus.Counter
	MessagesSent     prometheus.Counter
	SendRejected     prometheus.Counter
	SendFailures     prometheus.Counter
	ReconnectAttempt prometheus.Counter
	ConnectionCloses *prometheus.CounterVec
	ConnectionState  prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg creates
// unregistered collectors, which still count.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Inbound frames received on the live connection.",
		}),
		MalformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Inbound frames that were not valid chat messages.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound messages written to the live connection.",
		}),
		SendRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_rejected_total",
			Help:      "Sends attempted while the connection was not connected.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Sends that failed while writing to the transport.",
		}),
		ReconnectAttempt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts after transient connectivity failures.",
		}),
		ConnectionCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_closes_total",
			Help:      "Connection closes by kind (auth, transient, normal).",
		}, []string{"kind"}),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (0 disconnected, 1 connecting, 2 connected, 3 closed, 4 errored).",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.FramesReceived,
			c.MalformedFrames,
			c.MessagesSent,
			c.SendRejected,
			c.SendFailures,
			c.ReconnectAttempt,
			c.ConnectionCloses,
			c.ConnectionState,
		)
	}

	return c
}
