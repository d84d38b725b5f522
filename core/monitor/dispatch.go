package monitor

import (
	"context"
	"fmt"

	"github.com/g-andrade/vaktari/core/actor"
)

// Func is an entry of the dynamic call table.
type Func struct {
	Name  string
	Arity int
	Call  func(ctx context.Context, args []any) (any, error)
}

// Funcs returns the call table: monitor/2 and demonitor/1.
func (s *Service) Funcs() []Func {
	return []Func{
		{Name: "monitor", Arity: 2, Call: s.callMonitor},
		{Name: "demonitor", Arity: 1, Call: s.callDemonitor},
	}
}

// Call invokes a function of the call table by name with untyped
// arguments. Arity and argument types are checked here, the way an
// external caller without Go types would need them checked.
func (s *Service) Call(ctx context.Context, name string, args ...any) (any, error) {
	for _, f := range s.Funcs() {
		if f.Name == name {
			return f.Call(ctx, args)
		}
	}
	return nil, fmt.Errorf("%w: %s/%d", ErrUndefinedFunction, name, len(args))
}

func (s *Service) callMonitor(ctx context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, ErrNotSup
	}
	target, ok := args[0].(actor.PID)
	if !ok {
		return nil, badArg(args[0])
	}
	return s.Monitor(ctx, target, args[1])
}

func (s *Service) callDemonitor(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, ErrNotSup
	}
	ref, ok := args[0].(actor.Ref)
	if !ok {
		return nil, badArg(args[0])
	}
	return s.Demonitor(ctx, ref)
}
