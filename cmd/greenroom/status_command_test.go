package main

import (
	"context"
	"testing"

	"greenroom/internal/testsupport"
)

func TestStatusReportsEmptyInstall(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Queue:")
	requireContains(t, out, "empty")
	requireContains(t, out, "unreachable")
	requireContains(t, out, "not logged in")
	requireContains(t, out, "never")
}

func TestStatusCountsPendingAndFailed(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.EnqueueJob(t, store, "rec-alpha", "Alpha Rehearsal")
	beta := testsupport.EnqueueJob(t, store, "rec-beta", "Beta Rehearsal")
	beta.SetFailed("upload failed: boom", false)
	if err := store.Update(context.Background(), beta); err != nil {
		t.Fatalf("mark beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "1 pending, 1 failed")
}

func TestStatusAfterLogin(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"login", "--token", "tok-1", "--refresh-token", "refresh-1"}, env.configPath)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "Saved credentials")

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "logged in")
}
