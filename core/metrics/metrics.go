// Package metrics holds the backend-neutral pieces shared by the metrics
// interfaces of the runtime and the monitor service. Concrete backends live
// under adapters/.
package metrics

// Timer measures one operation. The clock starts when the timer is created:
//
//	defer m.MessageDuration(msgType).ObserveDuration()
type Timer interface {
	// ObserveDuration records the time elapsed since the timer was created.
	ObserveDuration()
}
