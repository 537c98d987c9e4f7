package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roman-kulish/glide-recovery/internal/director"
)

const namespace = "glide_director"

// Metrics exports director status as Prometheus gauges.
type Metrics struct {
	registry *prometheus.Registry

	enabled          prometheus.Gauge
	mode             prometheus.Gauge
	altitude         prometheus.Gauge
	projectedDist    prometheus.Gauge
	targetHeading    prometheus.Gauge
	groundTrack      prometheus.Gauge
	recoveryDistance prometheus.Gauge
	rateOfTurn       *prometheus.GaugeVec
	verticalSpeed    prometheus.Gauge
	groundSpeed      prometheus.Gauge
	rudder           prometheus.Gauge
	transitions      *prometheus.CounterVec

	mu       sync.Mutex
	lastMode director.Mode
	observed bool
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := &Metrics{
		registry:         prometheus.NewRegistry(),
		enabled:          gauge("enabled", "1 when the director has rudder authority"),
		mode:             gauge("mode", "Guidance mode: 0 seek, 1 track, 2 circle"),
		altitude:         gauge("altitude_feet", "Altitude of the last complete sample"),
		projectedDist:    gauge("projected_distance_nm", "Projected glide distance"),
		targetHeading:    gauge("target_heading_degrees", "Commanded heading"),
		groundTrack:      gauge("ground_track_degrees", "Ground track of the last complete sample"),
		recoveryDistance: gauge("recovery_distance_nm", "Distance to the recovery location, 0 without one"),
		rateOfTurn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_of_turn_degrees_per_second",
			Help:      "Averaged and target rate of turn",
		}, []string{"kind"}),
		verticalSpeed: gauge("vertical_speed_feet_per_minute", "Averaged vertical speed"),
		groundSpeed:   gauge("ground_speed_knots", "Averaged ground speed"),
		rudder:        gauge("rudder_deflection", "Commanded rudder deflection in [-1, 1]"),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_transitions_total",
			Help:      "Guidance mode transitions",
		}, []string{"from", "to"}),
	}

	m.registry.MustRegister(
		m.enabled, m.mode, m.altitude, m.projectedDist, m.targetHeading,
		m.groundTrack, m.recoveryDistance, m.rateOfTurn, m.verticalSpeed,
		m.groundSpeed, m.rudder, m.transitions,
	)
	return m
}

// Observe records a director status snapshot.
func (m *Metrics) Observe(st director.Status) {
	m.enabled.Set(boolToFloat(st.Enabled))
	m.mode.Set(float64(st.Mode))
	m.altitude.Set(st.Altitude)
	m.projectedDist.Set(st.ProjectedDist)
	m.targetHeading.Set(st.TargetHeading)
	m.groundTrack.Set(st.GroundTrack)
	m.recoveryDistance.Set(st.RecoveryDistance)
	m.rateOfTurn.WithLabelValues("actual").Set(st.RateOfTurn)
	m.rateOfTurn.WithLabelValues("target").Set(st.TargetRateOfTurn)
	m.verticalSpeed.Set(st.VerticalSpeed)
	m.groundSpeed.Set(st.GroundSpeed)
	m.rudder.Set(st.Rudder)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.observed && st.Mode != m.lastMode {
		m.transitions.WithLabelValues(m.lastMode.String(), st.Mode.String()).Inc()
	}
	m.lastMode, m.observed = st.Mode, true
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
