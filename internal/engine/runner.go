package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"greenroom/internal/config"
	"greenroom/internal/connectivity"
	"greenroom/internal/logging"
)

// Runner schedules sync passes: a fixed ticker while reachable, plus one
// immediate pass on every offline-to-online transition with pending work.
type Runner struct {
	engine   *Engine
	monitor  connectivity.Monitor
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewRunner builds a Runner from configuration.
func NewRunner(cfg *config.Config, eng *Engine, monitor connectivity.Monitor, logger *slog.Logger) *Runner {
	interval := time.Duration(cfg.Engine.SyncInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	runnerLogger := logger
	if runnerLogger == nil {
		runnerLogger = logging.NewNop()
	}
	return &Runner{
		engine:   eng,
		monitor:  monitor,
		interval: interval,
		logger:   runnerLogger.With(logging.String(logging.FieldComponent, "runner")),
	}
}

// Start launches the periodic loop and binds the connectivity
// subscription.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("runner already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.unsubscribe = r.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		r.onOnline(runCtx)
	})

	r.wg.Add(1)
	go r.loop(runCtx)
	r.mu.Unlock()
	return nil
}

// Stop halts scheduling and waits for the loop to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	unsubscribe := r.unsubscribe
	r.running = false
	r.cancel = nil
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.monitor.Online() {
				continue
			}
			r.engine.Sync(ctx)
		}
	}
}

// onOnline fires one sync when connectivity returns and work is waiting.
func (r *Runner) onOnline(ctx context.Context) {
	state, err := r.engine.State(ctx)
	if err != nil {
		r.logger.Warn("failed to read queue state on reconnect", logging.Error(err))
		return
	}
	if state.Pending == 0 {
		return
	}
	r.logger.Info("connectivity restored; draining queue",
		logging.Int("pending", state.Pending),
		logging.String(logging.FieldEventType, "reconnect_sync"))
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.engine.Sync(ctx)
	}()
}

// Drain runs sync passes until the queue stops making progress. Used by
// the CLI for a foreground "sync now".
func Drain(ctx context.Context, eng *Engine) []SyncResult {
	var results []SyncResult
	for {
		result := eng.Sync(ctx)
		results = append(results, result)
		if !result.Done || !result.Uploaded {
			return results
		}
		if ctx.Err() != nil {
			return results
		}
	}
}
