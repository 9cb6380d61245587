package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"greenroom/internal/config"
	"greenroom/internal/connectivity"
	"greenroom/internal/engine"
	"greenroom/internal/logging"
	"greenroom/internal/queue"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	engine  *engine.Engine
	monitor *connectivity.ProbeMonitor
	runner  *engine.Runner

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, eng *engine.Engine, monitor *connectivity.ProbeMonitor, runner *engine.Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil || monitor == nil || runner == nil {
		return nil, errors.New("daemon requires config, store, engine, monitor, and runner")
	}
	daemonLogger := logger
	if daemonLogger == nil {
		daemonLogger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "greenroomd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   daemonLogger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		engine:   eng,
		monitor:  monitor,
		runner:   runner,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the monitor and runner.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another greenroom daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.monitor.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start connectivity monitor: %w", err)
	}
	if err := d.runner.Start(runCtx); err != nil {
		d.monitor.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start sync runner: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("greenroom daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.runner.Stop()
	d.monitor.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("greenroom daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the instance lock file path.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
