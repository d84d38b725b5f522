package actor

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/mitchellh/copystructure"
)

// Env is an arena that owns the terms of one message. Plain data copied
// into an env shares no mutable memory with the caller, so a message built
// in an env stays valid however the builder's own values change afterwards.
//
// An env has a single owner at a time. Passing an env to [Runtime.Send]
// transfers ownership to the receiving mailbox, which frees it once the
// message was handled. Every other owner must call Free exactly once.
type Env struct {
	terms []any
	freed atomic.Bool
}

func NewEnv() *Env { return &Env{} }

// Copy deep-copies v into the env and returns the copy. Values that cannot
// be copied without loss are owned as they are: anything holding a PID, a
// Ref, an unexported struct field, a channel, a func or a pointer cycle.
func (e *Env) Copy(v any) (any, error) {
	e.mustLive()
	if v == nil {
		return nil, nil
	}
	if !copyable(reflect.ValueOf(v), map[uintptr]struct{}{}) {
		e.terms = append(e.terms, v)
		return v, nil
	}
	c, err := copystructure.Copy(v)
	if err != nil {
		return nil, fmt.Errorf("copy term %T: %w", v, err)
	}
	e.terms = append(e.terms, c)
	return c, nil
}

// CopyTerm is the typed form of [Env.Copy].
func CopyTerm[T any](e *Env, v T) (T, error) {
	c, err := e.Copy(v)
	if err != nil {
		var z T
		return z, err
	}
	if c == nil {
		var z T
		return z, nil
	}
	return c.(T), nil
}

// Adopt makes the env own v without copying it. The caller promises not to
// mutate v while the env is live.
func (e *Env) Adopt(v any) {
	e.mustLive()
	if v != nil {
		e.terms = append(e.terms, v)
	}
}

// Free releases every term owned by the env. Using the env afterwards,
// including a second Free, panics with [ErrEnvFreed].
func (e *Env) Free() {
	if !e.freed.CompareAndSwap(false, true) {
		panic(ErrEnvFreed)
	}
	clear(e.terms)
	e.terms = nil
}

func (e *Env) Freed() bool { return e.freed.Load() }

// Len returns the number of terms owned by the env.
func (e *Env) Len() int {
	e.mustLive()
	return len(e.terms)
}

func (e *Env) mustLive() {
	if e.freed.Load() {
		panic(ErrEnvFreed)
	}
}

var (
	pidType = reflect.TypeFor[PID]()
	refType = reflect.TypeFor[Ref]()
)

// copyable reports whether copystructure reproduces v exactly. It never
// looks inside a PID or Ref, so the walk stays out of the runtime graph a
// resource ref points into.
func copyable(v reflect.Value, seen map[uintptr]struct{}) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return false
	case reflect.Interface:
		return v.IsNil() || copyable(v.Elem(), seen)
	case reflect.Pointer:
		if v.IsNil() {
			return true
		}
		if !visit(v.Pointer(), seen) {
			return false
		}
		return copyable(v.Elem(), seen)
	case reflect.Map:
		if v.IsNil() {
			return true
		}
		if !visit(v.Pointer(), seen) {
			return false
		}
		for it := v.MapRange(); it.Next(); {
			if !copyable(it.Key(), seen) || !copyable(it.Value(), seen) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if !copyable(v.Index(i), seen) {
				return false
			}
		}
		return true
	case reflect.Struct:
		t := v.Type()
		if t == pidType || t == refType {
			return false
		}
		for i := range t.NumField() {
			if !t.Field(i).IsExported() || !copyable(v.Field(i), seen) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// visit records p and reports whether it was new. A pointer seen twice is
// either shared or cyclic, and a deep copy would break both.
func visit(p uintptr, seen map[uintptr]struct{}) bool {
	if _, ok := seen[p]; ok {
		return false
	}
	seen[p] = struct{}{}
	return true
}
