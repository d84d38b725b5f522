package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/g-andrade/vaktari/core/actor"
	"github.com/g-andrade/vaktari/core/metrics"
)

// actorMetrics implements actor.ActorMetrics using Prometheus.
type actorMetrics struct {
	messageDuration       *prometheus.HistogramVec
	messagesTotal         *prometheus.CounterVec
	panicTotal            *prometheus.CounterVec
	droppedTotal          prometheus.Counter
	mailboxDepth          *prometheus.GaugeVec
	processesSpawned      *prometheus.CounterVec
	processesExited       *prometheus.CounterVec
	watchesTotal          *prometheus.CounterVec
	resourcesDestroyed    *prometheus.CounterVec
	schedulerInflight     *prometheus.GaugeVec
	schedulerTaskDuration prometheus.Histogram
	schedulerTasksTotal   *prometheus.CounterVec
}

func NewActorMetrics(reg prometheus.Registerer) actor.ActorMetrics {
	m := &actorMetrics{
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actor_message_duration_seconds",
			Help:      "Message handling time in seconds",
			Buckets:   defaultBuckets,
		}, []string{"message_type"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_messages_total",
			Help:      "Total number of messages handled",
		}, []string{"message_type", "success"}),

		panicTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_panics_total",
			Help:      "Total number of handler panics",
		}, []string{"message_type"}),

		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_messages_dropped_total",
			Help:      "Messages sent to processes that no longer exist",
		}),

		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actor_mailbox_depth",
			Help:      "Mailbox depth last observed for a process name",
		}, []string{"process"}),

		processesSpawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_processes_spawned_total",
			Help:      "Total number of processes spawned",
		}, []string{"process"}),

		processesExited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_processes_exited_total",
			Help:      "Total number of processes terminated",
		}, []string{"process"}),

		watchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_watches_total",
			Help:      "Process watches by outcome",
		}, []string{"event"}),

		resourcesDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_resources_destroyed_total",
			Help:      "Resources whose destructor ran",
		}, []string{"resource_type"}),

		schedulerInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actor_scheduler_inflight",
			Help:      "Number of concurrent scheduled tasks",
		}, []string{"owner"}),

		schedulerTaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actor_scheduler_task_duration_seconds",
			Help:      "Scheduled task duration in seconds",
			Buckets:   defaultBuckets,
		}),

		schedulerTasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_scheduler_tasks_total",
			Help:      "Total number of scheduled tasks completed",
		}, []string{"success"}),
	}

	reg.MustRegister(
		m.messageDuration,
		m.messagesTotal,
		m.panicTotal,
		m.droppedTotal,
		m.mailboxDepth,
		m.processesSpawned,
		m.processesExited,
		m.watchesTotal,
		m.resourcesDestroyed,
		m.schedulerInflight,
		m.schedulerTaskDuration,
		m.schedulerTasksTotal,
	)

	return m
}

func (m *actorMetrics) MessageDuration(msgType string) metrics.Timer {
	return newTimer(m.messageDuration.WithLabelValues(msgType))
}

func (m *actorMetrics) MessageProcessed(msgType string, success bool) {
	m.messagesTotal.WithLabelValues(msgType, boolToStr(success)).Inc()
}

func (m *actorMetrics) MessagePanic(msgType string) {
	m.panicTotal.WithLabelValues(msgType).Inc()
}

func (m *actorMetrics) MessageDropped() { m.droppedTotal.Inc() }

func (m *actorMetrics) MailboxDepth(name string, depth int) {
	m.mailboxDepth.WithLabelValues(name).Set(float64(depth))
}

func (m *actorMetrics) ProcessSpawned(name string) {
	m.processesSpawned.WithLabelValues(name).Inc()
}

func (m *actorMetrics) ProcessExited(name string) {
	m.processesExited.WithLabelValues(name).Inc()
}

func (m *actorMetrics) WatchRegistered() { m.watchesTotal.WithLabelValues("registered").Inc() }
func (m *actorMetrics) WatchFired()      { m.watchesTotal.WithLabelValues("fired").Inc() }
func (m *actorMetrics) WatchCancelled()  { m.watchesTotal.WithLabelValues("cancelled").Inc() }

func (m *actorMetrics) ResourceDestroyed(typeName string) {
	m.resourcesDestroyed.WithLabelValues(typeName).Inc()
}

func (m *actorMetrics) SchedulerInflight(owner string, count int) {
	m.schedulerInflight.WithLabelValues(owner).Set(float64(count))
}

func (m *actorMetrics) SchedulerTaskDuration() metrics.Timer {
	return newTimer(m.schedulerTaskDuration)
}

func (m *actorMetrics) SchedulerTaskCompleted(success bool) {
	m.schedulerTasksTotal.WithLabelValues(boolToStr(success)).Inc()
}

var _ actor.ActorMetrics = (*actorMetrics)(nil)
