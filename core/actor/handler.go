package actor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type (
	emptyOut struct{}

	// Reply carries the result of a message handler execution.
	Reply struct {
		Result any   // Handler return value (nil for fire-and-forget)
		Error  error // Handler error, if any
	}

	// Envelope wraps a message for delivery to a process mailbox.
	Envelope struct {
		Type  string     // Message type name for handler dispatch
		Body  any        // The message term
		Env   *Env       // Arena owning Body, freed after handling; may be nil
		Reply chan Reply // Channel for the response; nil for plain sends
	}

	// RawHandler is the low-level interface for handling process messages.
	// Most users should use [TypedHandlers] instead of implementing this directly.
	RawHandler interface {
		// InitHandler is called once when the process starts, before processing messages.
		InitHandler(hc HandlerCtx) error
		// HandleMessage processes a message and returns a response.
		HandleMessage(hc HandlerCtx, mt string, body any) (any, error)
	}

	// MsgHandlerFunc is the signature for message handler functions.
	MsgHandlerFunc func(hc HandlerCtx, msg any) (any, error)

	// HandlerInitFunc is called during process initialization.
	HandlerInitFunc func(hc HandlerCtx) error

	// HandlerRegistrar allows registering message handlers with the process.
	HandlerRegistrar interface {
		// Register adds a handler for a message type.
		Register(msgType string, handle MsgHandlerFunc, init HandlerInitFunc)
	}

	// HandlerRegistration is a function that registers handlers with a registrar.
	// Create these using [HandleMsg], [HandleRequest], [HandleEvery], etc.
	HandlerRegistration func(registrar HandlerRegistrar)
)

// TypedHandlerRegistry dispatches incoming messages to the handler
// registered for their type name.
type TypedHandlerRegistry struct {
	mu             sync.RWMutex
	inits          []HandlerInitFunc
	handlers       map[string]MsgHandlerFunc
	defaultHandler MsgHandlerFunc
}

// Spawn starts a process on rt using this handler registry.
func (t *TypedHandlerRegistry) Spawn(rt *Runtime, opts Options) (*Process, error) {
	return rt.Spawn(opts, t)
}

// Register adds a handler for a message type. This is typically called
// indirectly via [HandleMsg], [HandleRequest], etc.
func (t *TypedHandlerRegistry) Register(msgType string, msgHandler MsgHandlerFunc, init HandlerInitFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msgType != "" && msgHandler != nil {
		t.handlers[msgType] = msgHandler
	}
	if init != nil {
		t.inits = append(t.inits, init)
	}
}

// InitHandler initializes all registered handlers. Called by the process on startup.
func (t *TypedHandlerRegistry) InitHandler(hc HandlerCtx) error {
	t.mu.Lock()
	dh, ok := t.handlers["*"]
	if ok {
		t.defaultHandler = dh
	} else {
		t.defaultHandler = func(hc HandlerCtx, msg any) (any, error) {
			return nil, fmt.Errorf("no handler for msg: msg_type=%s go_type=%T msg=%+v", msgTypeOf(msg), msg, msg)
		}
	}
	inits := t.inits
	t.mu.Unlock()

	for _, i := range inits {
		if err := i(hc); err != nil {
			return fmt.Errorf("failed to init handler: %w", err)
		}
	}
	return nil
}

// HandleMessage dispatches a message to the registered handler for its type.
func (t *TypedHandlerRegistry) HandleMessage(hc HandlerCtx, mt string, body any) (any, error) {
	t.mu.RLock()
	h, ok := t.handlers[mt]
	if !ok {
		h = t.defaultHandler
	}
	t.mu.RUnlock()
	return h(hc, body)
}

// TypedHandlers creates a new handler registry with the given handlers.
//
// Example:
//
//	p, err := actor.TypedHandlers(
//	    actor.HandleMsg[monitor.Down](onDown),
//	    actor.HandleRequest[Watch, actor.Ref](onWatch),
//	).Spawn(rt, actor.Options{Name: "watcher"})
func TypedHandlers(handlers ...HandlerRegistration) *TypedHandlerRegistry {
	th := &TypedHandlerRegistry{
		handlers: make(map[string]MsgHandlerFunc),
		inits:    make([]HandlerInitFunc, 0),
	}
	for _, h := range handlers {
		h(th)
	}
	return th
}

// DefaultHandler registers a fallback handler for messages without a specific handler.
func DefaultHandler(h func(HandlerCtx, any) (any, error)) HandlerRegistration {
	return func(registrar HandlerRegistrar) {
		registrar.Register("*", h, nil)
	}
}

// Init registers an initialization function called when the process starts.
func Init(initFunc HandlerInitFunc) HandlerRegistration {
	return func(registrar HandlerRegistrar) {
		registrar.Register("", nil, initFunc)
	}
}

// HandleMsg registers a fire-and-forget message handler for type IN.
func HandleMsg[IN any](msgHandler func(h HandlerCtx, i IN) error) HandlerRegistration {
	return HandleRequest[IN, emptyOut](func(h HandlerCtx, i IN) (*emptyOut, error) {
		return nil, msgHandler(h, i)
	})
}

type tickMsg struct{ mt string }

func (m tickMsg) MsgType() string { return m.mt }

// HandleEvery registers a periodic task that runs at the given interval.
// Ticks travel through the mailbox, so the task runs sequentially with all
// other handlers of the process.
func HandleEvery(interval time.Duration, msgHandler func(h HandlerCtx) error) HandlerRegistration {
	msg := tickMsg{mt: "tick/" + gonanoid.Must()}

	return HandleRequestWithOpts[tickMsg, emptyOut](
		func(h HandlerCtx, _ tickMsg) (*emptyOut, error) {
			return nil, msgHandler(h)
		},
		WithMessageType(msg.MsgType()),
		WithInitFunc(func(hc HandlerCtx) error {
			tmr := time.NewTicker(interval)
			go func() {
				defer tmr.Stop()
				for {
					select {
					case <-hc.Done():
						return
					case <-tmr.C:
						if err := hc.Runtime().deliver(hc.Self(), Envelope{Type: msg.MsgType(), Body: msg}); err != nil {
							hc.Log().Warn("failed to send tick message", slog.Any("error", err))
						}
					}
				}
			}()
			return nil
		}),
	)
}

// HandleRequest registers a request-response handler. The handler receives
// a message of type IN and returns a response of type *OUT.
func HandleRequest[IN any, OUT any](h func(h HandlerCtx, i IN) (*OUT, error)) HandlerRegistration {
	return HandleRequestWithOpts(h)
}

// HandleOpts configures handler registration.
type HandleOpts struct {
	// MessageType overrides the default type name derived from the Go type.
	MessageType string
	// InitFunc is called during process initialization.
	InitFunc HandlerInitFunc
}

// HandleOption configures handler registration behavior.
type HandleOption func(*HandleOpts)

// WithMessageType overrides the message type name used for routing.
func WithMessageType(msgType string) HandleOption {
	return func(o *HandleOpts) {
		o.MessageType = msgType
	}
}

// WithInitFunc adds an initialization function to be called on process startup.
func WithInitFunc(init HandlerInitFunc) HandleOption {
	return func(o *HandleOpts) {
		o.InitFunc = init
	}
}

// HandleRequestWithOpts registers a request-response handler with additional options.
func HandleRequestWithOpts[IN any, OUT any](
	h func(h HandlerCtx, i IN) (*OUT, error),
	opts ...HandleOption,
) HandlerRegistration {
	handleOpts := HandleOpts{
		MessageType: msgTypeFor[IN](),
	}
	for _, opt := range opts {
		opt(&handleOpts)
	}
	return func(registrar HandlerRegistrar) {
		registrar.Register(
			handleOpts.MessageType,
			func(hc HandlerCtx, msg any) (any, error) {
				var i IN
				switch m := msg.(type) {
				case IN:
					i = m
				case *IN:
					i = *m
				default:
					return nil, fmt.Errorf("invalid request message type: %T", msg)
				}
				out, err := h(hc, i)
				if err != nil {
					return nil, err
				}
				return out, nil
			},
			handleOpts.InitFunc,
		)
	}
}

type requester interface {
	Send(ctx context.Context, msg Envelope) error
}

// Request sends a request to a process and waits for the response. The
// request body is handed over as is; use [Runtime.Send] for isolated
// one-way messages.
func Request[IN any, OUT any](ctx context.Context, r requester, i IN) (*OUT, error) {
	res, err := RawRequest(ctx, r, msgTypeFor[IN](), i)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.(*OUT), nil
}

// Publish sends a message and waits until it was handled.
// Unlike [Request], Publish does not expect a return value from the handler.
func Publish[IN any](ctx context.Context, r requester, i IN) error {
	_, err := Request[IN, emptyOut](ctx, r, i)
	return err
}

// RawRequest sends a message to a process and waits for the response.
func RawRequest(ctx context.Context, r requester, msgType string, body any) (any, error) {
	replyChan := make(chan Reply, 1)

	err := r.Send(ctx, Envelope{Type: msgType, Body: body, Reply: replyChan})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-replyChan:
		return reply.Result, reply.Error
	}
}

// doMsg runs a function inside the process, bypassing the handler registry.
type doMsg struct {
	fn func(hc HandlerCtx) (any, error)
}

const doMsgType = "actor.do"

// Do runs fn inside process p and returns its result. fn observes p as its
// own identity, which makes Do the way for outside code to act on behalf
// of a process.
func Do[OUT any](ctx context.Context, r requester, fn func(hc HandlerCtx) (OUT, error)) (OUT, error) {
	var z OUT
	res, err := RawRequest(ctx, r, doMsgType, doMsg{fn: func(hc HandlerCtx) (any, error) {
		return fn(hc)
	}})
	if err != nil {
		return z, err
	}
	if res == nil {
		return z, nil
	}
	return res.(OUT), nil
}
