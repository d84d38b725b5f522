package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuntime_self(t *testing.T) {
	rt := newTestRuntime(t)
	other := newTestRuntime(t)
	p := newTestProcess(t, rt)

	_, ok := rt.Self(context.Background())
	require.False(t, ok)
	_, ok = rt.Self(nil) //nolint:staticcheck
	require.False(t, ok)

	leaked, err := Do(t.Context(), p, func(hc HandlerCtx) (bool, error) {
		_, ok := other.Self(hc)
		return ok, nil
	})
	require.NoError(t, err)
	require.False(t, leaked, "identity must not leak into another runtime")
}

func TestRuntime_lookup_and_local(t *testing.T) {
	rt := newTestRuntime(t)
	p := newTestProcess(t, rt)

	got, ok := rt.Lookup(p.PID())
	require.True(t, ok)
	require.Same(t, p, got)
	require.True(t, rt.IsLocal(p.PID()))
	require.False(t, rt.IsLocal(PID{}))
	require.False(t, rt.IsLocal(PID{node: "elsewhere", id: 1}))
	require.Contains(t, rt.Processes(), p.PID())

	p.Stop()
	require.False(t, rt.IsAlive(p.PID()))
	require.True(t, rt.IsLocal(p.PID()))
}

func TestRuntime_stop(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{Context: t.Context()})
	p := newTestProcess(t, rt)

	rt.Stop()
	<-p.Done()
	require.Empty(t, rt.Processes())

	_, err := rt.Spawn(Options{}, TypedHandlers())
	require.ErrorIs(t, err, ErrRuntimeStopped)
	require.NotEmpty(t, rt.Node())
}
