// Package daemon runs the poll-driven bridge loop and its process lifecycle.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"firestige.xyz/nmbridge/internal/bridge"
	"firestige.xyz/nmbridge/internal/config"
	"firestige.xyz/nmbridge/internal/metrics"
	"firestige.xyz/nmbridge/internal/poller"
	"firestige.xyz/nmbridge/internal/ring"
)

// Waiter waits for readiness on the endpoint descriptors.
type Waiter interface {
	Wait(fds []int, timeout time.Duration) ([]poller.Readiness, error)
}

// Options configures a Daemon.
type Options struct {
	Timeout         time.Duration
	PollErrorPolicy string // config.PollErrorSkip / config.PollErrorIgnore
	PIDFile         string
	Metrics         config.MetricsConfig
}

// Daemon bridges a wire endpoint and a host endpoint.
type Daemon struct {
	wire, host ring.Endpoint
	waiter     Waiter
	engine     *bridge.Engine
	opts       Options

	fds     []int
	closers []func() error
	warns   *warnLimiter

	metricsServer *metrics.Server // nil if metrics disabled
}

// New creates a daemon over two open endpoints. The daemon owns the endpoints
// and closes them in Stop.
func New(wire, host ring.Endpoint, waiter Waiter, engine *bridge.Engine, opts Options) *Daemon {
	if opts.PollErrorPolicy == "" {
		opts.PollErrorPolicy = config.PollErrorSkip
	}
	return &Daemon{
		wire:   wire,
		host:   host,
		waiter: waiter,
		engine: engine,
		opts:   opts,
		fds:    []int{wire.Fd(), host.Fd()},
		warns:  newWarnLimiter(5, time.Minute),
	}
}

// OnStop registers fn to run during Stop, after the endpoints are closed.
func (d *Daemon) OnStop(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Start writes the PID file and starts the metrics server.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("starting nmbridge",
		"wire", d.wire.Name(),
		"host", d.host.Name(),
		"poll_timeout", d.opts.Timeout,
		"poll_error_policy", d.opts.PollErrorPolicy,
	)

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	if err := d.startMetrics(ctx); err != nil {
		return multierr.Append(fmt.Errorf("failed to start metrics server: %w", err), d.removePIDFile())
	}
	return nil
}

// Stop releases everything Start and New acquired. It returns every error
// encountered.
func (d *Daemon) Stop() error {
	slog.Info("initiating shutdown")

	var err error
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = multierr.Append(err, d.metricsServer.Stop(shutdownCtx))
		cancel()
		d.metricsServer = nil
	}

	err = multierr.Append(err, d.wire.Close())
	err = multierr.Append(err, d.host.Close())
	for _, fn := range d.closers {
		err = multierr.Append(err, fn())
	}
	d.closers = nil

	err = multierr.Append(err, d.removePIDFile())

	if err != nil {
		slog.Error("shutdown finished with errors", "error", err)
	} else {
		slog.Info("nmbridge stopped")
	}
	return err
}

// Run iterates until ctx is cancelled, SIGINT or SIGTERM arrives, or an
// iteration fails. Cancellation is checked between iterations, so shutdown
// takes at most one poll timeout.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("bridge running")
	for {
		select {
		case <-ctx.Done():
			slog.Info("bridge loop stopped", "reason", context.Cause(ctx))
			return nil
		default:
		}

		if err := d.Iterate(); err != nil {
			return err
		}
	}
}

// Iterate waits once and, unless the wait timed out, runs the host-to-wire
// pass followed by the wire-to-host pass. It returns an error only for a
// failed wait or a failed pass.
func (d *Daemon) Iterate() error {
	ready, err := d.waiter.Wait(d.fds, d.opts.Timeout)
	if err != nil {
		metrics.PollTotal.WithLabelValues(metrics.PollError).Inc()
		return fmt.Errorf("wait on %s and %s: %w", d.wire.Name(), d.host.Name(), err)
	}

	errored, woke := d.classify(ready)
	if !woke {
		metrics.PollTotal.WithLabelValues(metrics.PollTimeout).Inc()
		return nil
	}
	metrics.PollTotal.WithLabelValues(metrics.PollReady).Inc()

	for ep := range errored {
		metrics.EndpointErrorsTotal.WithLabelValues(ep.Name()).Inc()
		if ok, dropped := d.warns.Allow(ep.Name()); ok {
			slog.Warn("endpoint reported error readiness",
				"endpoint", ep.Name(),
				"policy", d.opts.PollErrorPolicy,
				"suppressed", dropped,
			)
		}
	}

	for _, dir := range bridge.Directions {
		src, dst := d.endpoints(dir)
		if d.opts.PollErrorPolicy == config.PollErrorSkip && (errored[src] || errored[dst]) {
			slog.Debug("skipping pass", "direction", dir.String())
			continue
		}
		if err := d.pass(dir, src, dst); err != nil {
			return err
		}
	}
	return nil
}

func (d *Daemon) pass(dir bridge.Direction, src, dst ring.Endpoint) error {
	rx, tx := src.RxRings(), dst.TxRings()

	start := time.Now()
	res, err := d.engine.Move(dir, rx, tx)
	metrics.RecordPass(dir.String(), res.Stop.String(), res.Slots, res.Bytes, time.Since(start))

	metrics.RingSlotsPending.WithLabelValues(src.Name(), bridge.SideSource.String()).Set(float64(rx.Available()))
	metrics.RingSlotsPending.WithLabelValues(dst.Name(), bridge.SideSink.String()).Set(float64(tx.Available()))

	if err != nil {
		return fmt.Errorf("%s pass: %w", dir, err)
	}
	return nil
}

func (d *Daemon) endpoints(dir bridge.Direction) (src, dst ring.Endpoint) {
	if dir == bridge.HostToWire {
		return d.host, d.wire
	}
	return d.wire, d.host
}

// classify maps error readiness back to endpoints and reports whether any
// descriptor was ready at all.
func (d *Daemon) classify(ready []poller.Readiness) (errored map[ring.Endpoint]bool, woke bool) {
	for _, r := range ready {
		if !r.Readable && !r.Error {
			continue
		}
		woke = true
		if !r.Error {
			continue
		}
		for _, ep := range []ring.Endpoint{d.wire, d.host} {
			if ep.Fd() == r.FD {
				if errored == nil {
					errored = make(map[ring.Endpoint]bool, 2)
				}
				errored[ep] = true
			}
		}
	}
	return errored, woke
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics(ctx context.Context) error {
	if !d.opts.Metrics.Enabled {
		slog.Info("metrics server disabled")
		return nil
	}

	s := metrics.NewServer(d.opts.Metrics.Listen, d.opts.Metrics.Path)
	if err := s.Start(ctx); err != nil {
		return err
	}
	d.metricsServer = s
	return nil
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.opts.PIDFile == "" {
		return nil
	}

	pid := os.Getpid()
	if err := WritePID(d.opts.PIDFile, pid); err != nil {
		return err
	}

	slog.Debug("PID file written", "path", d.opts.PIDFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.opts.PIDFile == "" {
		return nil
	}

	if err := os.Remove(d.opts.PIDFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.opts.PIDFile, err)
	}

	slog.Debug("PID file removed", "path", d.opts.PIDFile)
	return nil
}
