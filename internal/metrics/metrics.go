package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moffa90/go-r503/protocol"
	"github.com/moffa90/go-r503/sensor"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler exposing reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// SensorMetrics counts sensor commands. It implements sensor.Observer.
type SensorMetrics struct {
	CommandsTotal     *prometheus.CounterVec   // labels: op, result
	CommandDuration   *prometheus.HistogramVec // labels: op
	TransportTimeouts prometheus.Counter
}

// NewSensorMetrics registers and returns the sensor metrics.
func NewSensorMetrics(reg prometheus.Registerer) *SensorMetrics {
	m := &SensorMetrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "r503_commands_total",
			Help: "Sensor commands by instruction and outcome.",
		}, []string{"op", "result"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "r503_command_duration_seconds",
			Help:    "Round-trip time of sensor commands.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
		}, []string{"op"}),
		TransportTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "r503_transport_timeouts_total",
			Help: "Replies that did not arrive within the read timeout.",
		}),
	}
	reg.MustRegister(m.CommandsTotal, m.CommandDuration, m.TransportTimeouts)
	return m
}

// CommandCompleted records one command.
func (m *SensorMetrics) CommandCompleted(cmd byte, outcome sensor.Outcome, elapsed time.Duration) {
	op := protocol.CommandName(cmd)
	m.CommandsTotal.WithLabelValues(op, string(outcome)).Inc()
	m.CommandDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if outcome == sensor.OutcomeTimeout {
		m.TransportTimeouts.Inc()
	}
}

var _ sensor.Observer = (*SensorMetrics)(nil)
