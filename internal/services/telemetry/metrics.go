package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agribot_telemetry_messages_total",
		Help: "Telemetry messages by validation outcome.",
	}, []string{"result"}) // accepted | flagged | rejected | malformed | duplicate

	alertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agribot_compliance_alerts_total",
		Help: "Compliance alerts by kind.",
	}, []string{"kind"})
)
