package actor

import "github.com/g-andrade/vaktari/core/metrics"

// ActorMetrics defines the metrics interface of the process runtime.
// All methods are thread-safe.
type ActorMetrics interface {
	// Message handling
	MessageDuration(msgType string) metrics.Timer
	MessageProcessed(msgType string, success bool)
	MessagePanic(msgType string)
	// MessageDropped counts sends to processes that no longer exist.
	MessageDropped()

	// Mailbox
	MailboxDepth(name string, depth int)

	// Process lifecycle
	ProcessSpawned(name string)
	ProcessExited(name string)

	// Watches and resources
	WatchRegistered()
	WatchFired()
	WatchCancelled()
	ResourceDestroyed(typeName string)

	// Scheduler
	SchedulerInflight(ownerID string, count int)
	SchedulerTaskDuration() metrics.Timer
	SchedulerTaskCompleted(success bool)
}

// nopActorMetrics is a no-op implementation of ActorMetrics.
type nopActorMetrics struct{}

func (nopActorMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) MessageProcessed(string, bool)        {}
func (nopActorMetrics) MessagePanic(string)                  {}
func (nopActorMetrics) MessageDropped()                      {}

func (nopActorMetrics) MailboxDepth(string, int) {}

func (nopActorMetrics) ProcessSpawned(string) {}
func (nopActorMetrics) ProcessExited(string)  {}

func (nopActorMetrics) WatchRegistered()         {}
func (nopActorMetrics) WatchFired()              {}
func (nopActorMetrics) WatchCancelled()          {}
func (nopActorMetrics) ResourceDestroyed(string) {}

func (nopActorMetrics) SchedulerInflight(string, int)        {}
func (nopActorMetrics) SchedulerTaskDuration() metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) SchedulerTaskCompleted(bool)          {}

// NopActorMetrics returns a no-op ActorMetrics implementation.
func NopActorMetrics() ActorMetrics { return nopActorMetrics{} }
