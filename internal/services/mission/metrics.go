package mission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agribot_missions_generated_total",
		Help: "Missions produced by the assembler, by resulting status.",
	}, []string{"status"})

	zoneFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agribot_mission_zone_failures_total",
		Help: "Zones whose path generation failed with a geometry error.",
	})

	importFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agribot_prescription_import_failures_total",
		Help: "Prescription documents rejected by the importer.",
	}, []string{"reason"})

	generationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agribot_mission_generation_seconds",
		Help:    "Wall time of one full mission generation.",
		Buckets: prometheus.DefBuckets,
	})
)
