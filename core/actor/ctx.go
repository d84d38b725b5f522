package actor

import (
	"context"
	"log/slog"
)

type (
	// HandlerCtx is the context handlers run in. It carries the identity of
	// the running process, so [Runtime.Self] resolves it.
	HandlerCtx interface {
		context.Context
		Self() PID
		Runtime() *Runtime
		Log() *slog.Logger
		Schedule(f scheduleFunc)
		// Send delivers msg to the mailbox of pid.
		Send(to PID, msg any) error
		// Exit stops the process once the current handler returns.
		Exit()
	}
)

type selfKey struct{}

type selfValue struct {
	rt  *Runtime
	pid PID
}

func withSelf(ctx context.Context, rt *Runtime, pid PID) context.Context {
	return context.WithValue(ctx, selfKey{}, selfValue{rt: rt, pid: pid})
}

type handlerCtx struct {
	context.Context
	rt    *Runtime
	self  PID
	log   *slog.Logger
	sched Scheduler
	exit  func()
}

// Schedule runs the given function asynchronously using the process scheduler.
func (hc *handlerCtx) Schedule(f scheduleFunc) {
	hc.sched.Schedule(func() { f() })
}

func (hc *handlerCtx) Self() PID                  { return hc.self }
func (hc *handlerCtx) Runtime() *Runtime          { return hc.rt }
func (hc *handlerCtx) Log() *slog.Logger          { return hc.log }
func (hc *handlerCtx) Send(to PID, msg any) error { return hc.rt.Send(to, nil, msg) }
func (hc *handlerCtx) Exit()                      { hc.exit() }

var _ HandlerCtx = (*handlerCtx)(nil)
