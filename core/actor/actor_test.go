package actor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	rt := NewRuntime(RuntimeOptions{
		NodeID:  "test",
		Context: t.Context(),
	})
	t.Cleanup(rt.Stop)
	return rt
}

func newTestProcess(t *testing.T, rt *Runtime, hs ...HandlerRegistration) *Process {
	p, err := TypedHandlers(hs...).Spawn(rt, Options{
		ControlSize:        10_000,
		MaxConcurrentTasks: 1000,
	})
	require.NoError(t, err)
	return p
}

func TestProcess_default(t *testing.T) {
	rt := newTestRuntime(t)
	p := newTestProcess(
		t, rt,
		DefaultHandler(func(hc HandlerCtx, msg any) (any, error) {
			s := "Hello"
			return &s, nil
		}),
	)

	res, err := Request[string, string](t.Context(), p, "Hi!")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "Hello", *res)
}

func TestProcess_simple_request(t *testing.T) {
	type (
		ping struct{ Seq int }
		pong struct{ Seq int }
	)
	rt := newTestRuntime(t)
	p := newTestProcess(
		t, rt,
		HandleRequest[ping, pong](func(hc HandlerCtx, ping ping) (*pong, error) {
			return &pong{Seq: ping.Seq + 1}, nil
		}),
	)
	res, err := Request[ping, pong](t.Context(), p, ping{Seq: 1})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 2, res.Seq)
}

func TestProcess_tell(t *testing.T) {
	type msg struct{ V int }
	ch := make(chan msg, 1)
	rt := newTestRuntime(t)
	p := newTestProcess(
		t, rt,
		HandleMsg[msg](func(hc HandlerCtx, msg msg) error {
			ch <- msg
			return nil
		}),
	)

	require.NoError(t, p.Tell(msg{V: 42}))

	select {
	case <-time.After(time.Second):
		t.Fatal("timeout")
	case m := <-ch:
		require.Equal(t, 42, m.V)
	}
}

func TestProcess_publish_err(t *testing.T) {
	type msg struct{ V int }
	rt := newTestRuntime(t)
	p := newTestProcess(
		t, rt,
		HandleMsg[msg](func(hc HandlerCtx, msg msg) error {
			return fmt.Errorf("uups")
		}),
	)

	require.ErrorContains(t, Publish(t.Context(), p, msg{V: 42}), "uups")
}

func TestProcess_panic_is_contained(t *testing.T) {
	type boom struct{}
	type ping struct{}
	rt := newTestRuntime(t)
	p := newTestProcess(
		t, rt,
		HandleMsg[boom](func(hc HandlerCtx, _ boom) error { panic("boom") }),
		HandleRequest[ping, string](func(hc HandlerCtx, _ ping) (*string, error) {
			s := "alive"
			return &s, nil
		}),
	)

	require.ErrorContains(t, Publish(t.Context(), p, boom{}), "handler panicked")

	res, err := Request[ping, string](t.Context(), p, ping{})
	require.NoError(t, err)
	require.Equal(t, "alive", *res)
}

func TestProcess_do_runs_as_self(t *testing.T) {
	rt := newTestRuntime(t)
	p := newTestProcess(t, rt)

	self, err := Do(t.Context(), p, func(hc HandlerCtx) (PID, error) {
		pid, _ := rt.Self(hc)
		return pid, nil
	})
	require.NoError(t, err)
	require.Equal(t, p.PID(), self)
}

func TestProcess_step_mode(t *testing.T) {
	type msg struct{ V int }
	ch := make(chan int, 10)
	rt := newTestRuntime(t)
	p := newTestProcess(
		t, rt,
		HandleMsg[msg](func(hc HandlerCtx, m msg) error {
			ch <- m.V
			return nil
		}),
	)

	require.NoError(t, p.EnableStepMode())
	require.NoError(t, p.Tell(msg{V: 1}))
	require.NoError(t, p.Tell(msg{V: 2}))

	select {
	case v := <-ch:
		t.Fatalf("handled %d before stepping", v)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, p.Step())
	require.Equal(t, 1, <-ch)

	require.NoError(t, p.Resume())
	require.Equal(t, 2, <-ch)
}

func TestProcess_exit_from_handler(t *testing.T) {
	type quit struct{}
	rt := newTestRuntime(t)
	p := newTestProcess(
		t, rt,
		HandleMsg[quit](func(hc HandlerCtx, _ quit) error {
			hc.Exit()
			return nil
		}),
	)

	require.NoError(t, p.Tell(quit{}))

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("process did not exit")
	}
	require.False(t, rt.IsAlive(p.PID()))
}

func TestProcess_stop_answers_pending_requests(t *testing.T) {
	type ping struct{}
	rt := newTestRuntime(t)
	p := newTestProcess(t, rt)
	require.NoError(t, p.Pause())

	errCh := make(chan error, 1)
	go func() {
		_, err := Request[ping, string](t.Context(), p, ping{})
		errCh <- err
	}()

	require.Eventually(t, func() bool { return p.MailboxLen() == 1 }, time.Second, time.Millisecond)
	p.Stop()

	require.ErrorIs(t, <-errCh, ErrProcessStopped)
	require.ErrorIs(t, p.Send(t.Context(), Envelope{}), ErrProcessStopped)
}

func TestHandleEvery(t *testing.T) {
	ticks := make(chan struct{}, 10)
	rt := newTestRuntime(t)
	newTestProcess(
		t, rt,
		HandleEvery(5*time.Millisecond, func(hc HandlerCtx) error {
			ticks <- struct{}{}
			return nil
		}),
	)

	for range 2 {
		select {
		case <-ticks:
		case <-time.After(time.Second):
			t.Fatal("no tick")
		}
	}
}
