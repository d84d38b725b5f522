package actor

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

type watchState int32

const (
	watchActive watchState = iota
	watchFired
	watchCancelled
)

func (s watchState) String() string {
	switch s {
	case watchActive:
		return "active"
	case watchFired:
		return "fired"
	case watchCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("watchState(%d)", int32(s))
}

// Watch is a registered request to run a resource's down callback when a
// process terminates. Its state moves from active to either fired or
// cancelled exactly once; whichever transition happens first wins and the
// other one fails.
type Watch struct {
	id     uint64
	res    *Resource
	target PID
	state  atomic.Int32
}

func (w *Watch) Target() PID  { return w.target }
func (w *Watch) Active() bool { return watchState(w.state.Load()) == watchActive }

func (w *Watch) String() string {
	return fmt.Sprintf("watch#%d(%s on %s)", w.id, watchState(w.state.Load()), w.target)
}

func (w *Watch) fire() bool {
	return w.state.CompareAndSwap(int32(watchActive), int32(watchFired))
}

func (w *Watch) cancel() bool {
	return w.state.CompareAndSwap(int32(watchActive), int32(watchCancelled))
}

// MonitorProcess watches target on behalf of res. When target terminates,
// the down callback of res's type runs with the returned watch, unless the
// watch was cancelled first. If target does not exist or already
// terminated, MonitorProcess returns [ErrNoProc] and nothing is registered.
func (rt *Runtime) MonitorProcess(res *Resource, target PID) (*Watch, error) {
	if res.typ.rt != rt {
		return nil, ErrForeignResource
	}
	if res.typ.down == nil {
		return nil, fmt.Errorf("resource type %q has no down callback", res.typ.name)
	}

	w := &Watch{
		id:     rt.refs.next(),
		res:    res,
		target: target,
	}

	rt.mu.Lock()
	p, ok := rt.procs[target]
	if !ok {
		rt.mu.Unlock()
		return nil, ErrNoProc
	}
	p.watches[w.id] = w
	rt.mu.Unlock()

	res.mu.Lock()
	res.watches = append(res.watches, w)
	res.mu.Unlock()

	rt.metrics.WatchRegistered()
	return w, nil
}

// DemonitorProcess cancels w. It fails with [ErrWatchInactive] when the
// watch already fired or was cancelled; at most one of a successful
// DemonitorProcess and the down callback ever happens for a watch.
func (rt *Runtime) DemonitorProcess(res *Resource, w *Watch) error {
	if w == nil || w.res != res {
		return ErrWatchInactive
	}
	if !w.cancel() {
		return ErrWatchInactive
	}
	rt.unlinkWatch(w)
	rt.metrics.WatchCancelled()
	return nil
}

func (rt *Runtime) unlinkWatch(w *Watch) {
	rt.mu.Lock()
	if p, ok := rt.procs[w.target]; ok {
		delete(p.watches, w.id)
	}
	rt.mu.Unlock()
}

// fireWatches runs the down callbacks of all watches still active on a
// terminated process.
func (rt *Runtime) fireWatches(pid PID, watches map[uint64]*Watch) {
	for _, w := range watches {
		if !w.fire() {
			continue
		}
		res := w.res
		if !res.tryKeep() {
			continue
		}
		rt.metrics.WatchFired()

		rt.callbacks.Schedule(func() {
			defer res.Release()
			rt.log.Debug("watch fired", slog.String("watch", w.String()), slog.String("resource", res.String()))
			res.typ.down(rt.callbacks.ctx, res, pid, w)
		})
	}
}
