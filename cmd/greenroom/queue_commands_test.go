package main

import (
	"context"
	"strings"
	"testing"

	"greenroom/internal/queue"
	"greenroom/internal/testsupport"
)

func TestQueueListShowsJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.EnqueueJob(t, store, "rec-alpha", "Alpha Rehearsal")

	beta := testsupport.EnqueueJob(t, store, "rec-beta", "Beta Rehearsal")
	beta.SetFailed("upload failed: boom", false)
	if err := store.Update(ctx, beta); err != nil {
		t.Fatalf("mark beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Alpha Rehearsal")
	requireContains(t, out, "Beta Rehearsal")
	requireContains(t, out, "failed")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --status failed: %v", err)
	}
	requireContains(t, out, "Beta Rehearsal")
	if strings.Contains(out, "Alpha Rehearsal") {
		t.Fatalf("status filter leaked pending job: %q", out)
	}
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, env.cfg)
	alpha := testsupport.EnqueueJob(t, store, "rec-alpha", "Alpha Rehearsal")
	alpha.SetFailed("upload failed: boom", false)
	if err := store.Update(ctx, alpha); err != nil {
		t.Fatalf("mark alpha failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed jobs")

	updated, err := store.GetByID(ctx, alpha.ID)
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", updated.Status)
	}

	out, _, err = runCLI(t, []string{"queue", "clear", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 queue jobs")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueClearRequiresScope(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"queue", "clear"}, env.configPath); err == nil {
		t.Fatal("expected error without --failed or --all")
	}
}
