package monitor

import (
	"fmt"

	"github.com/g-andrade/vaktari/core/actor"
)

// Reason explains a Down event.
type Reason string

const (
	// ReasonNoProc is reported when the target was already gone at Monitor time.
	ReasonNoProc Reason = "noproc"
	// ReasonUndefined is reported for targets that terminated while
	// monitored; the watch primitive does not surface exit reasons.
	ReasonUndefined Reason = "undefined"
)

const (
	// TagDown is the first element of [Down.Tuple].
	TagDown = "DOWN"
	// TypeProcess is the kind of object a Down event is about.
	TypeProcess = "process"
)

// Down is delivered to the owner of a monitor exactly once, unless the
// monitor was cancelled first.
type Down struct {
	Ref    actor.Ref
	Type   string
	PID    actor.PID
	Reason Reason
	Data   any
}

// Tuple returns the event as the 6-element record
// {DOWN, Ref, process, PID, Reason, Data}.
func (d Down) Tuple() [6]any {
	return [6]any{TagDown, d.Ref, d.Type, d.PID, d.Reason, d.Data}
}

func (d Down) String() string {
	return fmt.Sprintf("{%s, %s, %s, %s, %s, %v}", TagDown, d.Ref, d.Type, d.PID, d.Reason, d.Data)
}

func makeDown(ref actor.Ref, pid actor.PID, reason Reason, data any) Down {
	return Down{
		Ref:    ref,
		Type:   TypeProcess,
		PID:    pid,
		Reason: reason,
		Data:   data,
	}
}
