// Package actor provides the process runtime the monitors are built on:
// mailbox-based processes with identities, unique references, reference
// counted resources, process watches and isolated message arenas.
//
// # Processes
//
// A [Runtime] hosts processes. Each process has a [PID], handles one message
// at a time from an unbounded mailbox, and can be paused, resumed and
// stepped:
//
//	rt := actor.NewRuntime(actor.RuntimeOptions{})
//	p, err := actor.TypedHandlers(
//	    actor.HandleMsg[Ping](func(hc actor.HandlerCtx, m Ping) error {
//	        return hc.Send(m.From, Pong{})
//	    }),
//	).Spawn(rt, actor.Options{Name: "ponger"})
//
// Handlers run with a [HandlerCtx] that carries the identity of the running
// process; [Runtime.Self] resolves it from any context derived from it.
// [Do] runs a function inside a process on behalf of outside code.
//
// # Delivery
//
// [Runtime.Send] copies a message into a fresh [Env] and enqueues it, or
// takes ownership of a caller-built env. The receiving process frees the env
// after handling the message. Messages to processes that no longer exist are
// dropped.
//
// # Resources and watches
//
// A [ResourceType] bundles a down callback and a destructor. Resources are
// reference counted: [Runtime.AllocResource] returns one reference, a
// resource [Ref] made with [Runtime.MakeResourceRef] holds another until no
// copy of it is reachable, and the destructor runs when the count drops to
// zero.
//
// [Runtime.MonitorProcess] registers a [Watch] on a process for a resource.
// When the process terminates, the down callback runs on a bounded callback
// scheduler, unless [Runtime.DemonitorProcess] cancelled the watch first.
// The two outcomes are mutually exclusive per watch.
package actor
