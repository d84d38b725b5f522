// Package prometheus implements the metrics interfaces of the process
// runtime and the monitor service on Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/g-andrade/vaktari/core/metrics"
)

const namespace = "vaktari"

type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Latency buckets in seconds. Handlers and callbacks are expected to be
// short, so the range stops at one second.
var defaultBuckets = []float64{
	.00001, .000025, .00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1,
}

// AllMetrics bundles the runtime and monitor metrics registered on one
// registerer.
type AllMetrics struct {
	Actor   *actorMetrics
	Monitor *monitorMetrics
}

func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Actor:   NewActorMetrics(reg).(*actorMetrics),
		Monitor: NewMonitorMetrics(reg).(*monitorMetrics),
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
