package actor

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type downRecorder struct {
	mu    sync.Mutex
	downs []PID
	dtors atomic.Int32
}

func (r *downRecorder) down(_ context.Context, _ *Resource, pid PID, _ *Watch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downs = append(r.downs, pid)
}

func (r *downRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.downs)
}

func openTestType(t *testing.T, rt *Runtime, rec *downRecorder) *ResourceType {
	typ, err := rt.OpenResourceType(ResourceTypeInit{
		Name: "test.watcher",
		Down: rec.down,
		Dtor: func(*Resource) { rec.dtors.Add(1) },
	})
	require.NoError(t, err)
	return typ
}

func TestOpenResourceType_unique_name(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.OpenResourceType(ResourceTypeInit{Name: "x"})
	require.NoError(t, err)
	_, err = rt.OpenResourceType(ResourceTypeInit{Name: "x"})
	require.Error(t, err)
	_, err = rt.OpenResourceType(ResourceTypeInit{})
	require.Error(t, err)
}

func TestMonitorProcess_fires_on_exit(t *testing.T) {
	rt := newTestRuntime(t)
	rec := &downRecorder{}
	typ := openTestType(t, rt, rec)

	target := newTestProcess(t, rt)
	res := rt.AllocResource(typ, nil)
	defer res.Release()

	w, err := rt.MonitorProcess(res, target.PID())
	require.NoError(t, err)
	require.True(t, w.Active())
	require.Equal(t, target.PID(), w.Target())

	target.Stop()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	require.False(t, w.Active())
	require.ErrorIs(t, rt.DemonitorProcess(res, w), ErrWatchInactive)
	require.Equal(t, []PID{target.PID()}, rec.downs)
}

func TestMonitorProcess_dead_target(t *testing.T) {
	rt := newTestRuntime(t)
	typ := openTestType(t, rt, &downRecorder{})

	target := newTestProcess(t, rt)
	target.Stop()

	res := rt.AllocResource(typ, nil)
	defer res.Release()

	_, err := rt.MonitorProcess(res, target.PID())
	require.ErrorIs(t, err, ErrNoProc)
}

func TestDemonitorProcess_prevents_down(t *testing.T) {
	rt := newTestRuntime(t)
	rec := &downRecorder{}
	typ := openTestType(t, rt, rec)

	target := newTestProcess(t, rt)
	res := rt.AllocResource(typ, nil)
	defer res.Release()

	w, err := rt.MonitorProcess(res, target.PID())
	require.NoError(t, err)
	require.NoError(t, rt.DemonitorProcess(res, w))
	require.ErrorIs(t, rt.DemonitorProcess(res, w), ErrWatchInactive)

	target.Stop()
	rt.callbacks.Wait()
	require.Zero(t, rec.count())
}

func TestWatch_exactly_one_outcome(t *testing.T) {
	rt := newTestRuntime(t)
	rec := &downRecorder{}
	typ := openTestType(t, rt, rec)

	const n = 200
	var cancelled atomic.Int32
	var wg sync.WaitGroup
	for range n {
		target := newTestProcess(t, rt)
		res := rt.AllocResource(typ, nil)
		w, err := rt.MonitorProcess(res, target.PID())
		require.NoError(t, err)

		wg.Add(2)
		go func() {
			defer wg.Done()
			target.Stop()
		}()
		go func() {
			defer wg.Done()
			if rt.DemonitorProcess(res, w) == nil {
				cancelled.Add(1)
			}
		}()
		t.Cleanup(res.Release)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return rec.count()+int(cancelled.Load()) == n
	}, time.Second, time.Millisecond)
}

func TestResource_release_runs_dtor_and_cancels_watches(t *testing.T) {
	rt := newTestRuntime(t)
	rec := &downRecorder{}
	typ := openTestType(t, rt, rec)

	target := newTestProcess(t, rt)
	res := rt.AllocResource(typ, "obj")
	require.Equal(t, "obj", res.Object())
	require.Same(t, typ, res.Type())

	w, err := rt.MonitorProcess(res, target.PID())
	require.NoError(t, err)

	res.Keep()
	res.Release()
	require.Zero(t, rec.dtors.Load())

	res.Release()
	require.Equal(t, int32(1), rec.dtors.Load())
	require.False(t, w.Active())

	target.Stop()
	rt.callbacks.Wait()
	require.Zero(t, rec.count())
	require.Panics(t, res.Release)
}

func TestMakeResourceRef(t *testing.T) {
	rt := newTestRuntime(t)
	rec := &downRecorder{}
	typ := openTestType(t, rt, rec)
	other, err := rt.OpenResourceType(ResourceTypeInit{Name: "test.other"})
	require.NoError(t, err)

	res := rt.AllocResource(typ, nil)
	ref := rt.MakeResourceRef(res)
	require.True(t, ref.IsResource())
	require.Equal(t, ref, rt.MakeResourceRef(res))

	got, ok := rt.GetResource(ref, typ)
	require.True(t, ok)
	require.Same(t, res, got)

	_, ok = rt.GetResource(ref, other)
	require.False(t, ok)
	_, ok = rt.GetResource(rt.MakeRef(), typ)
	require.False(t, ok)

	// the ref keeps the resource alive after the allocation reference is gone
	res.Release()
	require.Zero(t, rec.dtors.Load())

	ref = Ref{}
	require.Eventually(t, func() bool {
		runtime.GC()
		return rec.dtors.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMakeRef_unique(t *testing.T) {
	rt := newTestRuntime(t)
	a, b := rt.MakeRef(), rt.MakeRef()
	require.NotEqual(t, a, b)
	require.False(t, a.IsZero())
	require.False(t, a.IsResource())
	require.True(t, Ref{}.IsZero())
}
