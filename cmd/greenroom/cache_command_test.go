package main

import (
	"testing"

	"greenroom/internal/testsupport"
)

func TestCacheStatsListsRecordings(t *testing.T) {
	env := setupCLITestEnv(t)

	cache := testsupport.MustOpenCache(t, env.cfg)
	testsupport.CacheRecording(t, cache, "rec-alpha", "Alpha Rehearsal")
	testsupport.CacheRecording(t, cache, "rec-beta", "Beta Rehearsal")

	out, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Recordings: 2")
	requireContains(t, out, "Alpha Rehearsal")
	requireContains(t, out, "Beta Rehearsal")
}

func TestCacheStatsEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Recordings: 0")
	requireContains(t, out, "Cached recordings: none")
}

func TestCachePruneKeepsFreshRecordings(t *testing.T) {
	env := setupCLITestEnv(t)

	cache := testsupport.MustOpenCache(t, env.cfg)
	testsupport.CacheRecording(t, cache, "rec-alpha", "Alpha Rehearsal")

	out, _, err := runCLI(t, []string{"cache", "prune"}, env.configPath)
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	requireContains(t, out, "No recordings pruned")
}
