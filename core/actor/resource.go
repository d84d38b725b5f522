package actor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"
)

type (
	// DownFunc is invoked on the runtime's callback scheduler when a process
	// watched on behalf of a resource terminates. It runs at most once per
	// watch and never for a watch that was cancelled first.
	DownFunc func(ctx context.Context, res *Resource, pid PID, w *Watch)

	// DtorFunc is invoked once the last reference to a resource is dropped.
	DtorFunc func(res *Resource)

	// ResourceTypeInit is the set of callbacks of a resource type.
	ResourceTypeInit struct {
		Name string
		Down DownFunc
		Dtor DtorFunc
	}
)

// ResourceType groups resources that share callbacks. Types are opened once
// per runtime and are read-only afterwards.
type ResourceType struct {
	rt   *Runtime
	name string
	down DownFunc
	dtor DtorFunc
}

func (t *ResourceType) Name() string { return t.name }

// OpenResourceType registers a resource type under a unique name.
func (rt *Runtime) OpenResourceType(init ResourceTypeInit) (*ResourceType, error) {
	if init.Name == "" {
		return nil, fmt.Errorf("resource type name is required")
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, exists := rt.types[init.Name]; exists {
		return nil, fmt.Errorf("resource type %q already opened", init.Name)
	}
	t := &ResourceType{
		rt:   rt,
		name: init.Name,
		down: init.Down,
		dtor: init.Dtor,
	}
	rt.types[init.Name] = t
	return t, nil
}

// Resource is a reference counted object owned by the runtime. Code never
// frees a resource; it drops references with Release and the runtime runs
// the type's destructor after the last one is gone.
type Resource struct {
	typ  *ResourceType
	id   uint64
	obj  any
	refs atomic.Int64

	mu      sync.Mutex
	term    weak.Pointer[resourceTerm]
	watches []*Watch
}

// AllocResource creates a resource of type t wrapping obj. The caller holds
// the single initial reference.
func (rt *Runtime) AllocResource(t *ResourceType, obj any) *Resource {
	r := &Resource{
		typ: t,
		id:  rt.refs.next(),
		obj: obj,
	}
	r.refs.Store(1)
	return r
}

func (r *Resource) Type() *ResourceType { return r.typ }
func (r *Resource) Object() any         { return r.obj }
func (r *Resource) String() string      { return fmt.Sprintf("%s#%d", r.typ.name, r.id) }

// Keep adds a reference.
func (r *Resource) Keep() {
	if r.refs.Add(1) <= 1 {
		panic(fmt.Sprintf("keep on destroyed resource %s", r))
	}
}

// tryKeep adds a reference unless the resource is already being destroyed.
func (r *Resource) tryKeep() bool {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference. Dropping the last one cancels the resource's
// remaining watches and runs the destructor on the calling goroutine.
func (r *Resource) Release() {
	n := r.refs.Add(-1)
	switch {
	case n > 0:
		return
	case n < 0:
		panic(fmt.Sprintf("release on destroyed resource %s", r))
	}

	r.mu.Lock()
	watches := r.watches
	r.watches = nil
	r.mu.Unlock()

	rt := r.typ.rt
	for _, w := range watches {
		if w.cancel() {
			rt.unlinkWatch(w)
			rt.metrics.WatchCancelled()
		}
	}

	rt.log.Debug("resource destroyed", slog.String("resource", r.String()))
	rt.metrics.ResourceDestroyed(r.typ.name)
	if r.typ.dtor != nil {
		r.typ.dtor(r)
	}
}

// MakeResourceRef returns a Ref to res. All refs to the same resource that
// are alive at the same time are equal. The ref holds a reference on res,
// dropped by the runtime once no copy of the ref is reachable any more.
func (rt *Runtime) MakeResourceRef(res *Resource) Ref {
	res.mu.Lock()
	defer res.mu.Unlock()

	term := res.term.Value()
	if term == nil {
		res.Keep()
		term = &resourceTerm{res: res}
		runtime.AddCleanup(term, func(r *Resource) { r.Release() }, res)
		res.term = weak.Make(term)
	}
	return Ref{node: rt.node, id: res.id, term: term}
}

// GetResource returns the resource behind ref if ref is a resource ref of
// type t.
func (rt *Runtime) GetResource(ref Ref, t *ResourceType) (*Resource, bool) {
	if ref.term == nil || ref.term.res.typ != t {
		return nil, false
	}
	return ref.term.res, true
}
