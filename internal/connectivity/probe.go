package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"greenroom/internal/config"
	"greenroom/internal/logging"
)

// ProbeFunc checks reachability once. A nil error means the remote is
// reachable.
type ProbeFunc func(ctx context.Context) error

// ProbeMonitor polls a probe function on a fixed interval and publishes
// change-only transitions. The initial state is offline until the first
// probe completes.
type ProbeMonitor struct {
	probe    ProbeFunc
	interval time.Duration
	logger   *slog.Logger

	fanout fanout

	mu      sync.Mutex
	running bool
	online  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProbeMonitor builds a monitor that HEAD-requests the configured
// remote base URL.
func NewProbeMonitor(cfg *config.Config, logger *slog.Logger) *ProbeMonitor {
	timeout := time.Duration(cfg.Connectivity.ProbeTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	interval := time.Duration(cfg.Connectivity.ProbeInterval) * time.Second
	return NewProbeMonitorWithProbe(HTTPProbe(cfg.Remote.BaseURL, timeout), interval, logger)
}

// NewProbeMonitorWithProbe builds a monitor around an injected probe.
func NewProbeMonitorWithProbe(probe ProbeFunc, interval time.Duration, logger *slog.Logger) *ProbeMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	monitorLogger := logger
	if monitorLogger == nil {
		monitorLogger = logging.NewNop()
	}
	return &ProbeMonitor{
		probe:    probe,
		interval: interval,
		logger:   monitorLogger.With(logging.String(logging.FieldComponent, "connectivity")),
	}
}

// Start launches the polling loop. The first probe runs before Start
// returns so callers observe a seeded state.
func (m *ProbeMonitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("connectivity monitor unavailable")
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("connectivity monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.poll()

	m.wg.Add(1)
	go m.loop()
	return nil
}

// Stop halts polling and waits for the loop to exit.
func (m *ProbeMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Online returns the last probed state.
func (m *ProbeMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a change listener.
func (m *ProbeMonitor) Subscribe(fn func(online bool)) (cancel func()) {
	return m.fanout.subscribe(fn)
}

func (m *ProbeMonitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *ProbeMonitor) poll() {
	ctx := m.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}

	err := m.probe(ctx)
	online := err == nil

	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}

	if online {
		m.logger.Info("remote reachable",
			logging.String(logging.FieldEventType, "connectivity_online"))
	} else {
		m.logger.Warn("remote unreachable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "connectivity_offline"))
	}
	m.fanout.notify(online)
}

// HTTPProbe reports the remote reachable when a HEAD request receives any
// HTTP response. Server errors still indicate a live network path; only
// transport failures count as offline.
func HTTPProbe(baseURL string, timeout time.Duration) ProbeFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
		if err != nil {
			return fmt.Errorf("build probe request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("probe %s: %w", baseURL, err)
		}
		defer resp.Body.Close()
		return nil
	}
}
