package actor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

type (
	OnPanic func(recovered any, stack []byte, msg any)

	// Actor is the control surface of a running process.
	Actor interface {
		PID() PID
		Send(ctx context.Context, msg Envelope) error
		Pause() error
		Resume() error
		Step() error
		Stop()
		Done() <-chan struct{}
	}
)

// ---- control messages (internal) ----

type ctrlKind int

const (
	ctrlPause ctrlKind = iota
	ctrlResume
	ctrlEnableStep
	ctrlStep
	ctrlStop
)

type ctrlMsg struct {
	kind ctrlKind
}

type Options struct {
	// Name labels the process in logs and metrics. Defaults to "process".
	Name        string
	ControlSize int
	Logger      *slog.Logger
	OnPanic     OnPanic
	// MaxConcurrentTasks caps the number of tasks run via HandlerCtx.Schedule.
	// If 0 or negative, it defaults to 32.
	MaxConcurrentTasks int
}

// Process is a goroutine with an identity and a mailbox. It handles one
// message at a time; when it stops, the runtime fires the watches
// registered on it.
type Process struct {
	rt   *Runtime
	pid  PID
	name string
	ctx  context.Context
	log  *slog.Logger

	cancel  context.CancelFunc
	mailbox *mailbox
	control chan ctrlMsg
	sched   *scheduler

	stop chan struct{}
	done chan struct{}

	mu     sync.Mutex
	closed bool

	// guarded by rt.mu
	watches map[uint64]*Watch

	onPanic OnPanic
}

func newProcess(rt *Runtime, pid PID, opt Options) *Process {
	if opt.Name == "" {
		opt.Name = "process"
	}
	if opt.ControlSize == 0 {
		opt.ControlSize = 16
	}
	if opt.Logger == nil {
		opt.Logger = rt.log
	}
	if opt.MaxConcurrentTasks <= 0 {
		opt.MaxConcurrentTasks = 32
	}

	log := opt.Logger.With(slog.String("pid", pid.String()), slog.String("process", opt.Name))
	if opt.OnPanic == nil {
		opt.OnPanic = func(recovered any, stack []byte, msg any) {
			log.Error("process panicked", slog.Any("recovered", recovered), slog.String("stack", string(stack)), slog.Any("msg", msg))
		}
	}

	ctx, cancel := context.WithCancel(rt.ctx)
	return &Process{
		rt:      rt,
		pid:     pid,
		name:    opt.Name,
		ctx:     withSelf(ctx, rt, pid),
		log:     log,
		cancel:  cancel,
		mailbox: newMailbox(),
		control: make(chan ctrlMsg, opt.ControlSize),
		sched:   newScheduler(ctx, opt.MaxConcurrentTasks, log, opt.Name, rt.metrics),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		watches: make(map[uint64]*Watch),
		onPanic: opt.OnPanic,
	}
}

func (p *Process) PID() PID { return p.pid }

// Done is closed when the process stopped and its watches were fired.
func (p *Process) Done() <-chan struct{} { return p.done }

// Stop requests shutdown and waits for completion. It must not be called
// from the process's own handlers; use [HandlerCtx.Exit] there.
func (p *Process) Stop() {
	p.requestStop()
	<-p.done
}

// requestStop tells the loop to stop after the current message.
func (p *Process) requestStop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	select {
	case p.control <- ctrlMsg{kind: ctrlStop}:
	default:
	}
	close(p.stop)
}

// Send enqueues an envelope. It never blocks; it fails only once the
// process is shutting down.
func (p *Process) Send(ctx context.Context, e Envelope) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	if !p.enqueue(e) {
		return ErrProcessStopped
	}
	return nil
}

// Tell sends msg to the process as an isolated one-way message.
func (p *Process) Tell(msg any) error {
	return p.rt.Send(p.pid, nil, msg)
}

// Pause prevents further processing until Resume or Step.
func (p *Process) Pause() error { return p.sendCtrl(ctrlPause) }

// Resume enables continuous processing (disables step mode).
func (p *Process) Resume() error { return p.sendCtrl(ctrlResume) }

// EnableStepMode makes the process handle messages only when Step() is called.
func (p *Process) EnableStepMode() error { return p.sendCtrl(ctrlEnableStep) }

// Step permits exactly one message to be processed.
func (p *Process) Step() error { return p.sendCtrl(ctrlStep) }

// MailboxLen returns the number of messages waiting to be handled.
func (p *Process) MailboxLen() int { return p.mailbox.len() }

// ---- internals ----

func (p *Process) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Process) enqueue(e Envelope) bool {
	if p.isClosed() {
		return false
	}
	depth, ok := p.mailbox.push(e)
	if ok {
		p.rt.metrics.MailboxDepth(p.name, depth)
	}
	return ok
}

func (p *Process) sendCtrl(k ctrlKind) error {
	if p.isClosed() {
		return ErrProcessStopped
	}
	select {
	case <-p.stop:
		return ErrProcessStopped
	case p.control <- ctrlMsg{kind: k}:
		return nil
	}
}

func (p *Process) loop(h RawHandler) {
	hc := &handlerCtx{
		Context: p.ctx,
		rt:      p.rt,
		self:    p.pid,
		log:     p.log,
		sched:   p.sched,
		exit:    p.requestStop,
	}
	defer p.exit()

	// execution state lives only in this goroutine
	paused := false
	stepMode := false
	permit := 1 // when >0, the process may handle one message; in run mode we auto-renew

	apply := func(c ctrlMsg) bool {
		switch c.kind {
		case ctrlStop:
			return false
		case ctrlPause:
			paused = true
			permit = 0
		case ctrlResume:
			paused = false
			stepMode = false
			if permit == 0 {
				permit = 1
			}
		case ctrlEnableStep:
			stepMode = true
			paused = true
			permit = 0
		case ctrlStep:
			permit++
		}
		return true
	}

	// control messages have priority over the mailbox
	drainControl := func() bool {
		for {
			select {
			case <-p.stop:
				return false
			case c := <-p.control:
				if !apply(c) {
					return false
				}
			default:
				return true
			}
		}
	}

	if err := h.InitHandler(hc); err != nil {
		p.log.Error("process init failed", slog.Any("error", err))
		return
	}

	for {
		if ok := drainControl(); !ok {
			return
		}

		if permit <= 0 {
			select {
			case <-p.stop:
				return
			case <-hc.Done():
				return
			case c := <-p.control:
				if !apply(c) {
					return
				}
			}
			continue
		}

		select {
		case <-p.stop:
			return
		case <-hc.Done():
			return
		case c := <-p.control:
			if !apply(c) {
				return
			}
		case <-p.mailbox.ready:
			e, depth, ok := p.mailbox.pop()
			if !ok {
				continue
			}
			p.rt.metrics.MailboxDepth(p.name, depth)
			permit--
			p.handle(hc, h, e)
			if !paused && !stepMode {
				permit++
			}
		}
	}
}

// handle runs one envelope with crash containment. The envelope's env is
// freed afterwards.
func (p *Process) handle(hc HandlerCtx, h RawHandler, e Envelope) {
	defer func() {
		if e.Env != nil {
			e.Env.Free()
		}
	}()

	timer := p.rt.metrics.MessageDuration(e.Type)
	res, err := func() (res any, err error) {
		defer func() {
			if r := recover(); r != nil {
				p.rt.metrics.MessagePanic(e.Type)
				p.onPanic(r, debug.Stack(), e.Body)
				err = fmt.Errorf("handler panicked: %v", r)
			}
		}()
		if d, ok := e.Body.(doMsg); ok && e.Type == doMsgType {
			return d.fn(hc)
		}
		return h.HandleMessage(hc, e.Type, e.Body)
	}()
	timer.ObserveDuration()
	p.rt.metrics.MessageProcessed(e.Type, err == nil)

	if e.Reply != nil {
		e.Reply <- Reply{Result: res, Error: err}
	} else if err != nil {
		p.log.Warn("message handling failed", slog.String("msg_type", e.Type), slog.Any("error", err))
	}
}

// exit unregisters the process, fires its watches and settles whatever is
// left in the mailbox.
func (p *Process) exit() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.rt.terminate(p)

	for _, e := range p.mailbox.close() {
		if e.Reply != nil {
			e.Reply <- Reply{Error: ErrProcessStopped}
		}
		if e.Env != nil {
			e.Env.Free()
		}
	}

	p.sched.Wait()
	p.log.Debug("process exited")
	close(p.done)
}

var _ Actor = (*Process)(nil)
