package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/g-andrade/vaktari/core/actor"
	"github.com/g-andrade/vaktari/core/monitor"
)

func TestRun(t *testing.T) {
	err := run(t.Context(), config{
		Targets:     300,
		Owners:      4,
		DeadEvery:   7,
		Parallelism: 32,
		Callbacks:   8,
		Timeout:     30 * time.Second,
		LogLevel:    "warn",
	})
	require.NoError(t, err)
}

func TestRun_rejects_invalid_config(t *testing.T) {
	valid := config{Targets: 10, Owners: 2, Parallelism: 4, Timeout: time.Second}
	require.NoError(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(*config)
		want   string
	}{
		{name: "no owners", mutate: func(c *config) { c.Owners = 0 }, want: "owners must be at least 1"},
		{name: "no parallelism", mutate: func(c *config) { c.Parallelism = 0 }, want: "parallelism must be at least 1"},
		{name: "negative targets", mutate: func(c *config) { c.Targets = -1 }, want: "targets must not be negative"},
		{name: "negative dead-every", mutate: func(c *config) { c.DeadEvery = -3 }, want: "dead-every must not be negative"},
		{name: "zero timeout", mutate: func(c *config) { c.Timeout = 0 }, want: "timeout must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			done := make(chan error, 1)
			go func() { done <- run(t.Context(), cfg) }()
			select {
			case err := <-done:
				require.ErrorContains(t, err, tt.want)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return")
			}
		})
	}
}

func TestNewRootCmd_rejects_zero_owners(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--owners", "0", "--targets", "1"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.ErrorContains(t, cmd.ExecuteContext(t.Context()), "owners must be at least 1")
}

func TestTally_check(t *testing.T) {
	rt := actor.NewRuntime(actor.RuntimeOptions{NodeID: "tally"})
	defer rt.Stop()
	a, b := rt.MakeRef(), rt.MakeRef()

	tl := newTally()
	tl.down(monitor.Down{Ref: a, Reason: monitor.ReasonUndefined})
	tl.cancel(b)
	tl.down(monitor.Down{Reason: monitor.ReasonNoProc})
	require.Equal(t, 3, tl.resolved())
	require.NoError(t, tl.check())

	tl.down(monitor.Down{Ref: a, Reason: monitor.ReasonUndefined})
	tl.down(monitor.Down{Ref: b, Reason: monitor.ReasonUndefined})
	err := tl.check()
	require.ErrorContains(t, err, "fired 2 times")
	require.ErrorContains(t, err, "fired after cancel")
}

func TestNewRootCmd_env_defaults(t *testing.T) {
	t.Setenv("VAKTARI_TARGETS", "42")
	t.Setenv("VAKTARI_TIMEOUT", "5s")
	t.Setenv("VAKTARI_OWNERS", "nope")

	f := newRootCmd().Flags()
	targets, err := f.GetInt("targets")
	require.NoError(t, err)
	require.Equal(t, 42, targets)

	owners, err := f.GetInt("owners")
	require.NoError(t, err)
	require.Equal(t, 16, owners)

	timeout, err := f.GetDuration("timeout")
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, timeout)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	require.Equal(t, slog.LevelInfo, parseLevel("loud"))
}
