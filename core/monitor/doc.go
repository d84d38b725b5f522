// Package monitor implements semantic process monitors: a process asks to
// receive one [Down] event when another process terminates, with an opaque
// value of its choosing echoed back in the event, and may cancel that
// request later.
//
//	svc, err := monitor.New(rt, monitor.Options{})
//
//	// inside a handler of the watching process
//	ref, err := svc.Monitor(hc, target, "ctx1")
//	...
//	cancelled, err := svc.Demonitor(hc, ref)
//
// The watching process receives
//
//	monitor.Down{Ref: ref, Type: "process", PID: target, Reason: "undefined", Data: "ctx1"}
//
// exactly once after target terminates, unless Demonitor returned true
// first. Only the process that called Monitor can cancel. If target was
// already gone, Monitor puts a Down event with reason "noproc" into the
// caller's mailbox before it returns and hands out a plain ref, for which
// Demonitor returns false.
//
// The race between cancellation and termination is decided by the watch
// primitive of package actor: per monitor, either Demonitor succeeds or
// the down callback runs, never both.
package monitor
