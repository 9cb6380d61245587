package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"greenroom/internal/queue"
	"greenroom/internal/testsupport"
)

func TestSyncUploadsPendingRecordings(t *testing.T) {
	var uploads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		uploads.Add(1)
		json.NewEncoder(w).Encode(map[string]string{
			"video_ref":     "remote/video",
			"thumbnail_ref": "remote/thumb",
		})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	env := &cliTestEnv{cfg: cfg, configPath: configPath}

	cache := testsupport.MustOpenCache(t, cfg)
	testsupport.CacheRecording(t, cache, "rec-alpha", "Alpha Rehearsal")
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.EnqueueJob(t, store, "rec-alpha", "Alpha Rehearsal")

	if _, _, err := runCLI(t, []string{"login", "--token", "tok-1"}, env.configPath); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, _, err := runCLI(t, []string{"sync"}, env.configPath)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "Uploaded 1 recordings")
	if got := uploads.Load(); got != 1 {
		t.Fatalf("expected 1 upload, saw %d", got)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[queue.StatusPending] != 0 {
		t.Fatalf("expected drained queue, got %d pending", stats[queue.StatusPending])
	}
}

func TestSyncOfflineLeavesQueueAlone(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.EnqueueJob(t, store, "rec-alpha", "Alpha Rehearsal")

	out, _, err := runCLI(t, []string{"sync"}, env.configPath)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "unreachable")

	job, err := store.FindByRecordingID(context.Background(), "rec-alpha")
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending after offline sync, got %s", job.Status)
	}
	if job.AttemptCount != 0 {
		t.Fatalf("offline sync must not consume attempts, got %d", job.AttemptCount)
	}
}
