package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "codraft", Name: "connected_clients", Help: "Number of currently connected websocket clients."},
	)
	OpenSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "codraft", Name: "open_document_sessions", Help: "Number of document sessions with at least one participant."},
	)
	ChangesRelayed = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "codraft", Name: "changes_relayed_total", Help: "Number of edit payloads fanned out to session peers."},
	)
	DocumentSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "codraft", Name: "document_saves_total", Help: "Number of save requests by outcome."},
		[]string{"outcome"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "codraft", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "codraft", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(ConnectedClients)
	reg.MustRegister(OpenSessions)
	reg.MustRegister(ChangesRelayed)
	reg.MustRegister(DocumentSaves)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
