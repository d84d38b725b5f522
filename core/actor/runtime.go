package actor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type RuntimeOptions struct {
	// NodeID names the runtime in PIDs and Refs. Generated when empty.
	NodeID  string
	Context context.Context
	Logger  *slog.Logger
	Metrics ActorMetrics
	// MaxConcurrentCallbacks caps the number of resource callbacks running
	// at the same time. If 0 or negative, it defaults to 64.
	MaxConcurrentCallbacks int
}

// Runtime hosts processes and the primitives built around them: identities,
// refs, resources, watches and mailbox delivery.
type Runtime struct {
	node    string
	ctx     context.Context
	cancel  context.CancelFunc
	log     *slog.Logger
	metrics ActorMetrics

	pids serial
	refs serial

	mu      sync.Mutex
	procs   map[PID]*Process
	types   map[string]*ResourceType
	stopped bool

	callbacks     *scheduler
	stopCallbacks context.CancelFunc
}

func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.NodeID == "" {
		opts.NodeID = fmt.Sprintf("node-%s", gonanoid.Must(6))
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopActorMetrics()
	}
	if opts.MaxConcurrentCallbacks <= 0 {
		opts.MaxConcurrentCallbacks = 64
	}

	log := opts.Logger.With(slog.String("node", opts.NodeID))
	ctx, cancel := context.WithCancel(opts.Context)

	// Callbacks outlive the processes during Stop, so they get their own
	// context.
	cbCtx, cbCancel := context.WithCancel(context.WithoutCancel(opts.Context))

	return &Runtime{
		node:          opts.NodeID,
		ctx:           ctx,
		cancel:        cancel,
		log:           log,
		metrics:       opts.Metrics,
		procs:         make(map[PID]*Process),
		types:         make(map[string]*ResourceType),
		callbacks:     newScheduler(cbCtx, opts.MaxConcurrentCallbacks, log, "runtime", opts.Metrics),
		stopCallbacks: cbCancel,
	}
}

func (rt *Runtime) Node() string      { return rt.node }
func (rt *Runtime) Log() *slog.Logger { return rt.log }

// IsLocal reports whether pid was issued by this runtime.
func (rt *Runtime) IsLocal(pid PID) bool { return !pid.IsZero() && pid.node == rt.node }

// Self resolves the process ctx belongs to. It fails for contexts that do
// not come from a handler of a process of this runtime.
func (rt *Runtime) Self(ctx context.Context) (PID, bool) {
	if ctx == nil {
		return PID{}, false
	}
	v, ok := ctx.Value(selfKey{}).(selfValue)
	if !ok || v.rt != rt {
		return PID{}, false
	}
	return v.pid, true
}

// MakeRef returns a fresh plain Ref.
func (rt *Runtime) MakeRef() Ref {
	return Ref{node: rt.node, id: rt.refs.next()}
}

func (rt *Runtime) Lookup(pid PID) (*Process, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	p, ok := rt.procs[pid]
	return p, ok
}

func (rt *Runtime) IsAlive(pid PID) bool {
	_, ok := rt.Lookup(pid)
	return ok
}

// Processes returns the PIDs of all live processes.
func (rt *Runtime) Processes() []PID {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]PID, 0, len(rt.procs))
	for pid := range rt.procs {
		out = append(out, pid)
	}
	return out
}

// Send delivers msg to the mailbox of to. With a nil env, msg is copied
// into a fresh env first. A non-nil env must own msg; it is handed over to
// the mailbox and must not be used by the caller afterwards. Messages to
// processes that do not exist are dropped.
func (rt *Runtime) Send(to PID, env *Env, msg any) error {
	if env == nil {
		env = NewEnv()
		c, err := env.Copy(msg)
		if err != nil {
			env.Free()
			return err
		}
		msg = c
	}
	return rt.deliver(to, Envelope{Type: msgTypeOf(msg), Body: msg, Env: env})
}

func (rt *Runtime) deliver(to PID, e Envelope) error {
	p, ok := rt.Lookup(to)
	if ok && p.enqueue(e) {
		return nil
	}
	rt.metrics.MessageDropped()
	if e.Env != nil {
		e.Env.Free()
	}
	return nil
}

// Spawn starts a process running handler.
func (rt *Runtime) Spawn(opts Options, handler RawHandler) (*Process, error) {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil, ErrRuntimeStopped
	}
	pid := PID{node: rt.node, id: rt.pids.next()}
	p := newProcess(rt, pid, opts)
	rt.procs[pid] = p
	rt.mu.Unlock()

	rt.metrics.ProcessSpawned(p.name)
	p.log.Debug("process spawned")

	go p.loop(handler)
	return p, nil
}

// terminate removes p from the process table and fires the watches that
// are still registered on it. Registration takes the same lock, so a watch
// is either rejected with ErrNoProc or seen here.
func (rt *Runtime) terminate(p *Process) {
	rt.mu.Lock()
	delete(rt.procs, p.pid)
	watches := p.watches
	p.watches = nil
	rt.mu.Unlock()

	rt.metrics.ProcessExited(p.name)
	rt.fireWatches(p.pid, watches)
}

// Stop stops all processes, waits for pending callbacks and refuses new
// spawns.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return
	}
	rt.stopped = true
	procs := make([]*Process, 0, len(rt.procs))
	for _, p := range rt.procs {
		procs = append(procs, p)
	}
	rt.mu.Unlock()

	for _, p := range procs {
		p.Stop()
	}
	rt.cancel()
	rt.callbacks.Wait()
	rt.stopCallbacks()
	rt.log.Debug("runtime stopped")
}
