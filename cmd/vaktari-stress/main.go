// Command vaktari-stress races target exits against demonitor calls and
// checks that every monitor resolved exactly once: either its owner
// cancelled it or a single Down event arrived, never both.
//
// Flags default from VAKTARI_* environment variables:
//
//	VAKTARI_TARGETS=50000 VAKTARI_METRICS_ADDR=:2121 go run ./cmd/vaktari-stress
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	promadapter "github.com/g-andrade/vaktari/adapters/prometheus"
	"github.com/g-andrade/vaktari/core/actor"
	"github.com/g-andrade/vaktari/core/monitor"
)

// === Config ===

type config struct {
	Targets     int
	Owners      int
	DeadEvery   int
	Parallelism int
	Callbacks   int
	Timeout     time.Duration
	MetricsAddr string
	LogLevel    string
}

func (c config) validate() error {
	var errs []error
	if c.Targets < 0 {
		errs = append(errs, fmt.Errorf("targets must not be negative, got %d", c.Targets))
	}
	if c.Owners < 1 {
		errs = append(errs, fmt.Errorf("owners must be at least 1, got %d", c.Owners))
	}
	if c.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism))
	}
	if c.DeadEvery < 0 {
		errs = append(errs, fmt.Errorf("dead-every must not be negative, got %d", c.DeadEvery))
	}
	if c.Callbacks < 0 {
		errs = append(errs, fmt.Errorf("callbacks must not be negative, got %d", c.Callbacks))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return v
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func newRootCmd() *cobra.Command {
	var cfg config
	cmd := &cobra.Command{
		Use:          "vaktari-stress",
		Short:        "Race process exits against demonitor and check every monitor resolves once",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Targets, "targets", getEnvInt("VAKTARI_TARGETS", 10_000), "number of monitored target processes")
	f.IntVar(&cfg.Owners, "owners", getEnvInt("VAKTARI_OWNERS", 16), "number of owner processes")
	f.IntVar(&cfg.DeadEvery, "dead-every", getEnvInt("VAKTARI_DEAD_EVERY", 10), "stop every n-th target before monitoring it (0 disables)")
	f.IntVar(&cfg.Parallelism, "parallelism", getEnvInt("VAKTARI_PARALLELISM", 256), "races in flight")
	f.IntVar(&cfg.Callbacks, "callbacks", getEnvInt("VAKTARI_CALLBACKS", 64), "concurrent down callbacks")
	f.DurationVar(&cfg.Timeout, "timeout", getEnvDuration("VAKTARI_TIMEOUT", 2*time.Minute), "overall deadline")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", getEnv("VAKTARI_METRICS_ADDR", ""), "serve /metrics on this address")
	f.StringVar(&cfg.LogLevel, "log-level", getEnv("VAKTARI_LOG_LEVEL", "info"), "debug, info, warn or error")
	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// === Run ===

// tally records how each monitor ended.
type tally struct {
	mu        sync.Mutex
	cancelled map[actor.Ref]bool
	fired     map[actor.Ref]int
	noProc    int
	errs      []error
}

func newTally() *tally {
	return &tally{cancelled: map[actor.Ref]bool{}, fired: map[actor.Ref]int{}}
}

func (t *tally) down(d monitor.Down) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch d.Reason {
	case monitor.ReasonNoProc:
		t.noProc++
	default:
		t.fired[d.Ref]++
	}
}

func (t *tally) cancel(ref actor.Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled[ref] = true
}

func (t *tally) resolved() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cancelled) + len(t.fired) + t.noProc
}

func (t *tally) check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for ref, n := range t.fired {
		if n > 1 {
			errs = append(errs, fmt.Errorf("monitor %s fired %d times", ref, n))
		}
		if t.cancelled[ref] {
			errs = append(errs, fmt.Errorf("monitor %s fired after cancel", ref))
		}
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := promadapter.NewAllMetrics(reg)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			log.Info("serving metrics", slog.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	rt := actor.NewRuntime(actor.RuntimeOptions{
		Context:                ctx,
		Logger:                 log,
		Metrics:                m.Actor,
		MaxConcurrentCallbacks: cfg.Callbacks,
	})
	defer rt.Stop()

	svc, err := monitor.New(rt, monitor.Options{Logger: log, Metrics: m.Monitor})
	if err != nil {
		return err
	}

	t := newTally()
	owners := make([]*actor.Process, cfg.Owners)
	for i := range owners {
		owners[i], err = actor.TypedHandlers(
			actor.HandleMsg[monitor.Down](func(_ actor.HandlerCtx, d monitor.Down) error {
				t.down(d)
				return nil
			}),
		).Spawn(rt, actor.Options{Name: "owner"})
		if err != nil {
			return fmt.Errorf("spawn owner: %w", err)
		}
	}

	log.Info("starting",
		slog.String("node", rt.Node()),
		slog.Int("targets", cfg.Targets),
		slog.Int("owners", cfg.Owners),
	)
	startAt := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallelism)
	for i := range cfg.Targets {
		owner := owners[i%len(owners)]
		dead := cfg.DeadEvery > 0 && i%cfg.DeadEvery == 0
		g.Go(func() error {
			return race(gctx, rt, svc, owner, t, i, dead)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for t.resolved() < cfg.Targets {
		select {
		case <-ctx.Done():
			return fmt.Errorf("resolved %d of %d monitors: %w", t.resolved(), cfg.Targets, ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
	if err := t.check(); err != nil {
		return err
	}

	t.mu.Lock()
	log.Info("done",
		slog.Duration("took", time.Since(startAt)),
		slog.Int("cancelled", len(t.cancelled)),
		slog.Int("fired", len(t.fired)),
		slog.Int("noproc", t.noProc),
	)
	t.mu.Unlock()
	return nil
}

// race monitors a fresh target from owner, then stops the target while the
// owner tries to cancel.
func race(ctx context.Context, rt *actor.Runtime, svc *monitor.Service, owner *actor.Process, t *tally, i int, dead bool) error {
	target, err := actor.TypedHandlers().Spawn(rt, actor.Options{Name: "target"})
	if err != nil {
		return fmt.Errorf("spawn target: %w", err)
	}
	if dead {
		target.Stop()
	}

	ref, err := actor.Do(ctx, owner, func(hc actor.HandlerCtx) (actor.Ref, error) {
		return svc.Monitor(hc, target.PID(), i)
	})
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		target.Stop()
	}()

	ok, err := actor.Do(ctx, owner, func(hc actor.HandlerCtx) (bool, error) {
		return svc.Demonitor(hc, ref)
	})
	<-done
	if err != nil {
		return fmt.Errorf("demonitor: %w", err)
	}
	if ok {
		t.cancel(ref)
	}
	return nil
}
