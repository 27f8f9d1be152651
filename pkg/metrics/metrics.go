package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Arm results.
const (
	ArmOK       = "ok"
	ArmRejected = "rejected"
	ArmError    = "error"
)

// Motion holds the motion pipeline collectors.
type Motion struct {
	Statuses       *prometheus.CounterVec
	Arms           *prometheus.CounterVec
	ConnectionLost prometheus.Counter
	SessionsActive prometheus.Gauge
	QueueDepth     prometheus.Gauge
}

// NewMotion creates the motion collectors and registers them on reg.
func NewMotion(reg prometheus.Registerer) *Motion {
	factory := promauto.With(reg)
	return &Motion{
		Statuses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "camlink_motion_statuses_total",
				Help: "Total motion statuses produced by listeners",
			},
			[]string{"kind"},
		),
		Arms: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "camlink_motion_arm_total",
				Help: "Total motion reporting arm attempts",
			},
			[]string{"result"},
		),
		ConnectionLost: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "camlink_motion_connection_lost_total",
				Help: "Total motion listeners ended by a transport failure",
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "camlink_motion_sessions_active",
				Help: "Current number of open motion sessions",
			},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "camlink_motion_queue_depth",
				Help: "Statuses waiting in the most recently written session queue",
			},
		),
	}
}

// ObserveStatus counts one produced status of the given kind.
func (m *Motion) ObserveStatus(kind string) {
	if m == nil {
		return
	}
	m.Statuses.WithLabelValues(kind).Inc()
}

// ObserveArm counts one arming attempt.
func (m *Motion) ObserveArm(result string) {
	if m == nil {
		return
	}
	m.Arms.WithLabelValues(result).Inc()
}

// ObserveConnectionLost counts one listener ended by transport failure.
func (m *Motion) ObserveConnectionLost() {
	if m == nil {
		return
	}
	m.ConnectionLost.Inc()
}

// SessionOpened increments the active session gauge.
func (m *Motion) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Motion) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// SetQueueDepth records how many statuses wait in a session queue.
func (m *Motion) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
