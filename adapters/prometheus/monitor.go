package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/g-andrade/vaktari/core/monitor"
)

// monitorMetrics implements monitor.MonitorMetrics using Prometheus.
type monitorMetrics struct {
	monitorsTotal   *prometheus.CounterVec
	demonitorsTotal *prometheus.CounterVec
	downsTotal      prometheus.Counter
	destroyedTotal  prometheus.Counter
}

func NewMonitorMetrics(reg prometheus.Registerer) monitor.MonitorMetrics {
	m := &monitorMetrics{
		monitorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_started_total",
			Help:      "Monitor calls by path: watch for live targets, noproc for gone ones",
		}, []string{"path"}),

		demonitorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_demonitor_total",
			Help:      "Demonitor calls by owners, by whether they cancelled",
		}, []string{"cancelled"}),

		downsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_down_delivered_total",
			Help:      "Down events delivered for terminated targets",
		}),

		destroyedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_handles_destroyed_total",
			Help:      "Monitor handles reclaimed",
		}),
	}

	reg.MustRegister(
		m.monitorsTotal,
		m.demonitorsTotal,
		m.downsTotal,
		m.destroyedTotal,
	)

	return m
}

func (m *monitorMetrics) MonitorStarted() { m.monitorsTotal.WithLabelValues("watch").Inc() }
func (m *monitorMetrics) MonitorNoProc()  { m.monitorsTotal.WithLabelValues("noproc").Inc() }

func (m *monitorMetrics) DemonitorResult(cancelled bool) {
	m.demonitorsTotal.WithLabelValues(boolToStr(cancelled)).Inc()
}

func (m *monitorMetrics) DownDelivered()   { m.downsTotal.Inc() }
func (m *monitorMetrics) HandleDestroyed() { m.destroyedTotal.Inc() }

var _ monitor.MonitorMetrics = (*monitorMetrics)(nil)
