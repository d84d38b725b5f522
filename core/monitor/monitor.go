package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/g-andrade/vaktari/core/actor"
)

// ResourceTypeName is the name the monitor handle type is opened under.
const ResourceTypeName = "vaktari.semantic_monitor"

type Options struct {
	Logger  *slog.Logger
	Metrics MonitorMetrics
}

// Service starts and cancels monitors on the processes of one runtime.
type Service struct {
	rt      *actor.Runtime
	typ     *actor.ResourceType
	log     *slog.Logger
	metrics MonitorMetrics
}

// handle is the object behind a monitor ref.
type handle struct {
	watch *actor.Watch
	owner actor.PID
	// pending is set while a Down event may still be built. Whoever wins
	// the watch, the down callback or Demonitor, takes it.
	pending atomic.Pointer[pending]
}

// pending is the part of a handle that lives in its env.
type pending struct {
	env      *actor.Env
	self     actor.Ref
	downData any
}

func (h *handle) take() *pending { return h.pending.Swap(nil) }

// New opens the monitor resource type on rt.
func New(rt *actor.Runtime, opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = rt.Log()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMonitorMetrics()
	}

	s := &Service{
		rt:      rt,
		log:     opts.Logger.With(slog.String("component", "monitor")),
		metrics: opts.Metrics,
	}

	typ, err := rt.OpenResourceType(actor.ResourceTypeInit{
		Name: ResourceTypeName,
		Down: s.down,
		Dtor: s.destroy,
	})
	if err != nil {
		return nil, fmt.Errorf("open monitor resource type: %w", err)
	}
	s.typ = typ
	return s, nil
}

// Monitor asks for a [Down] event carrying downData once target terminates.
// ctx must belong to a process of the runtime; that process owns the
// monitor.
//
// If target is already gone, no monitor is created: a Down event with
// reason [ReasonNoProc] is put into the caller's mailbox before Monitor
// returns, and the returned ref is a plain ref that Demonitor never
// cancels.
func (s *Service) Monitor(ctx context.Context, target actor.PID, downData any) (actor.Ref, error) {
	if !s.rt.IsLocal(target) {
		return actor.Ref{}, badArg(target)
	}
	self, ok := s.rt.Self(ctx)
	if !ok {
		return actor.Ref{}, ErrNotSup
	}

	h := &handle{owner: self}
	res := s.rt.AllocResource(s.typ, h)
	ref := s.rt.MakeResourceRef(res)

	// The handle is complete before the watch exists, so a down callback
	// racing with the rest of Monitor never sees it half built.
	h.pending.Store(prepare(ref, downData))

	w, err := s.rt.MonitorProcess(res, target)
	if err != nil {
		h.take().env.Free()
		res.Release()
		if !errors.Is(err, actor.ErrNoProc) {
			return actor.Ref{}, fmt.Errorf("watch %s: %w", target, err)
		}
		return s.noProc(self, target, downData)
	}
	h.watch = w
	res.Release()

	s.metrics.MonitorStarted()
	s.log.Debug("monitor started",
		slog.String("ref", ref.String()),
		slog.String("owner", self.String()),
		slog.String("target", target.String()),
	)
	return ref, nil
}

// prepare puts the self ref and the down data into a fresh env. The down
// data is kept as given so the Down event carries it back unchanged.
func prepare(ref actor.Ref, downData any) *pending {
	env := actor.NewEnv()
	env.Adopt(ref)
	env.Adopt(downData)
	return &pending{env: env, self: ref, downData: downData}
}

// noProc sends the Down event for a target that was gone before it could
// be watched.
func (s *Service) noProc(self, target actor.PID, downData any) (actor.Ref, error) {
	ref := s.rt.MakeRef()
	msg := makeDown(ref, target, ReasonNoProc, downData)
	env := actor.NewEnv()
	env.Adopt(msg)
	if err := s.rt.Send(self, env, msg); err != nil {
		return actor.Ref{}, fmt.Errorf("send down to %s: %w", self, err)
	}
	s.metrics.MonitorNoProc()
	s.log.Debug("monitor target gone",
		slog.String("ref", ref.String()),
		slog.String("owner", self.String()),
		slog.String("target", target.String()),
	)
	return ref, nil
}

// Demonitor cancels the monitor behind ref. It returns true only if the
// caller owns the monitor and cancelled it before it fired; once it
// returns true, no Down event is delivered for ref. A plain ref, such as
// one returned for a target that was already gone, yields false.
func (s *Service) Demonitor(ctx context.Context, ref actor.Ref) (bool, error) {
	res, ok := s.rt.GetResource(ref, s.typ)
	if !ok {
		if !ref.IsZero() {
			return false, nil
		}
		return false, badArg(ref)
	}

	self, ok := s.rt.Self(ctx)
	if !ok {
		return false, ErrNotSup
	}
	h := res.Object().(*handle)
	if self != h.owner {
		return false, nil
	}

	if err := s.rt.DemonitorProcess(res, h.watch); err != nil {
		s.metrics.DemonitorResult(false)
		return false, nil
	}
	h.take().env.Free()

	s.metrics.DemonitorResult(true)
	s.log.Debug("monitor cancelled", slog.String("ref", ref.String()))
	return true, nil
}

// down builds the Down event in the handle's env and hands both to the
// owner's mailbox.
func (s *Service) down(_ context.Context, res *actor.Resource, pid actor.PID, _ *actor.Watch) {
	h := res.Object().(*handle)
	p := h.take()

	msg := makeDown(p.self, pid, ReasonUndefined, p.downData)
	p.env.Adopt(msg)
	if err := s.rt.Send(h.owner, p.env, msg); err != nil {
		s.log.Error("down delivery failed", slog.String("ref", p.self.String()), slog.Any("error", err))
		return
	}
	s.metrics.DownDelivered()
	s.log.Debug("monitor fired",
		slog.String("ref", p.self.String()),
		slog.String("owner", h.owner.String()),
		slog.String("target", pid.String()),
	)
}

// destroy runs when the last reference to a handle is gone. A handle that
// still holds its pending event was neither fired nor cancelled, which
// means the race between the two was lost by both.
func (s *Service) destroy(res *actor.Resource) {
	h := res.Object().(*handle)
	if h.pending.Load() != nil {
		panic(fmt.Sprintf("monitor %s destroyed with a pending down event", res))
	}
	s.metrics.HandleDestroyed()
}
