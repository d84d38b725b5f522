package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/g-andrade/vaktari/core/actor"
)

func TestFuncs(t *testing.T) {
	f := newFixture(t)
	var names []string
	for _, fn := range f.svc.Funcs() {
		names = append(names, fn.Name)
	}
	require.Equal(t, []string{"monitor", "demonitor"}, names)
}

func TestCall_round_trip(t *testing.T) {
	f := newFixture(t)
	a, downs := f.owner(t)
	b := f.target(t)

	cancelled, err := actor.Do(t.Context(), a, func(hc actor.HandlerCtx) (any, error) {
		ref, err := f.svc.Call(hc, "monitor", b.PID(), "data")
		if err != nil {
			return nil, err
		}
		return f.svc.Call(hc, "demonitor", ref)
	})
	require.NoError(t, err)
	require.Equal(t, true, cancelled)

	b.Stop()
	requireNoDown(t, downs)
}

func TestCall_argument_errors(t *testing.T) {
	f := newFixture(t)
	a, _ := f.owner(t)
	b := f.target(t)

	tests := []struct {
		name    string
		fn      string
		args    []any
		wantErr error
		badArg  any
	}{
		{name: "monitor arity", fn: "monitor", args: []any{b.PID()}, wantErr: ErrNotSup},
		{name: "monitor too many", fn: "monitor", args: []any{b.PID(), 1, 2}, wantErr: ErrNotSup},
		{name: "monitor target not a pid", fn: "monitor", args: []any{"pid", 1}, wantErr: ErrBadArg, badArg: "pid"},
		{name: "demonitor arity", fn: "demonitor", args: nil, wantErr: ErrNotSup},
		{name: "demonitor not a ref", fn: "demonitor", args: []any{42}, wantErr: ErrBadArg, badArg: 42},
		{name: "unknown", fn: "link", args: []any{b.PID()}, wantErr: ErrUndefinedFunction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := actor.Do(t.Context(), a, func(hc actor.HandlerCtx) (any, error) {
				return f.svc.Call(hc, tt.fn, tt.args...)
			})
			require.ErrorIs(t, err, tt.wantErr)
			if tt.badArg != nil {
				var bad *BadArgError
				require.ErrorAs(t, err, &bad)
				require.Equal(t, tt.badArg, bad.Value)
			}
		})
	}
}

func TestCall_undefined_names_arity(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Call(t.Context(), "spawn", 1, 2, 3)
	require.ErrorIs(t, err, ErrUndefinedFunction)
	require.ErrorContains(t, err, "spawn/3")
}
