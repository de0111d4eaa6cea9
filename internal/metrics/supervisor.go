package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	supervisorPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "supervisor",
		Name:      "phase",
		Help:      "1 for the current supervisor phase, 0 otherwise",
	}, []string{"phase"})

	segmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_total",
		Help:      "Encoder segments ended, by reason",
	}, []string{"reason"})

	watchdogTrips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watchdog",
		Name:      "trips_total",
		Help:      "Encoders killed for silent output",
	})

	encoderSpawns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "spawns_total",
		Help:      "Encoder processes launched",
	})

	lastActivity = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "watchdog",
		Name:      "last_activity_timestamp_seconds",
		Help:      "Unix time of the last encoder output line",
	})
)

// SetPhase marks current as the active phase among phases.
func SetPhase(current string, phases []string) {
	for _, p := range phases {
		value := 0.0
		if p == current {
			value = 1
		}
		supervisorPhase.WithLabelValues(p).Set(value)
	}
}

// IncSegment counts a segment that ended for reason.
func IncSegment(reason string) {
	segmentsTotal.WithLabelValues(reason).Inc()
}

// IncWatchdogTrip counts a freeze kill.
func IncWatchdogTrip() {
	watchdogTrips.Inc()
}

// IncSpawn counts an encoder launch.
func IncSpawn() {
	encoderSpawns.Inc()
}

// SetLastActivity records the last output time as Unix seconds.
func SetLastActivity(unixSeconds float64) {
	lastActivity.Set(unixSeconds)
}
