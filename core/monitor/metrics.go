package monitor

// MonitorMetrics defines the metrics interface of the monitor service.
// All methods are thread-safe.
type MonitorMetrics interface {
	// MonitorStarted counts monitors that registered a watch.
	MonitorStarted()
	// MonitorNoProc counts monitors answered right away because the target was gone.
	MonitorNoProc()
	// DemonitorResult counts owner cancellations; cancelled is false when
	// the Down event won the race.
	DemonitorResult(cancelled bool)
	DownDelivered()
	HandleDestroyed()
}

type nopMonitorMetrics struct{}

func (nopMonitorMetrics) MonitorStarted()      {}
func (nopMonitorMetrics) MonitorNoProc()       {}
func (nopMonitorMetrics) DemonitorResult(bool) {}
func (nopMonitorMetrics) DownDelivered()       {}
func (nopMonitorMetrics) HandleDestroyed()     {}

// NopMonitorMetrics returns a no-op MonitorMetrics implementation.
func NopMonitorMetrics() MonitorMetrics { return nopMonitorMetrics{} }
