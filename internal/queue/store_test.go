package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"greenroom/internal/queue"
	"greenroom/internal/testsupport"
)

func TestEnqueueAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	recordedAt := time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)
	job, err := store.Enqueue(ctx, &queue.Job{
		RecordingID:     "rec-100",
		CollectionID:    "col-7",
		CollectionTitle: "Spring Recital",
		SubCollectionID: "sub-2",
		UserID:          "user-9",
		Snapshot: queue.Snapshot{
			Title:              "Act Two Runthrough",
			RecordedAt:         recordedAt,
			SubCollectionTitle: "Dress Rehearsals",
			Performers:         []string{"Ana", "Bela"},
			Tags:               []string{"dress", "full-run"},
			Notes:              "lighting cue late in scene 3",
		},
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}
	if job.AttemptCount != 0 {
		t.Fatalf("expected zero attempts, got %d", job.AttemptCount)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job to be found")
	}
	if fetched.RecordingID != "rec-100" || fetched.CollectionTitle != "Spring Recital" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	if fetched.Snapshot.Title != "Act Two Runthrough" {
		t.Fatalf("unexpected snapshot title: %q", fetched.Snapshot.Title)
	}
	if !fetched.Snapshot.RecordedAt.Equal(recordedAt) {
		t.Fatalf("unexpected recorded-at: %v", fetched.Snapshot.RecordedAt)
	}
	if len(fetched.Snapshot.Performers) != 2 || fetched.Snapshot.Performers[1] != "Bela" {
		t.Fatalf("unexpected performers: %v", fetched.Snapshot.Performers)
	}

	found, err := store.FindByRecordingID(ctx, "rec-100")
	if err != nil {
		t.Fatalf("FindByRecordingID failed: %v", err)
	}
	if found == nil || found.ID != job.ID {
		t.Fatalf("expected to find enqueued job, got %#v", found)
	}
}

func TestEnqueueRequiresIdentifiers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Enqueue(ctx, &queue.Job{CollectionID: "col-1"}); err == nil {
		t.Fatal("expected error when recording id missing")
	}
	if _, err := store.Enqueue(ctx, &queue.Job{RecordingID: "rec-1"}); err == nil {
		t.Fatal("expected error when collection id missing")
	}
}

func TestNextPendingReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var jobs []*queue.Job
	for i := 0; i < 3; i++ {
		job := testsupport.EnqueueJob(t, store, fmt.Sprintf("rec-%d", i), fmt.Sprintf("Take %d", i))
		jobs = append(jobs, job)
	}

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID != jobs[0].ID {
		t.Fatalf("expected oldest job first, got %#v", next)
	}

	next.Status = queue.StatusUploading
	if err := store.Update(ctx, next); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	second, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if second == nil || second.ID != jobs[1].ID {
		t.Fatalf("expected second job after first went in-flight, got %#v", second)
	}
}

func TestNextPendingEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	next, err := store.NextPending(context.Background())
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil on empty queue, got %#v", next)
	}
}

func TestOpenResetsInFlightJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueJob(t, store, "rec-restart", "Interrupted Upload")
	job.Status = queue.StatusUploading
	job.AttemptCount = 2
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	restored, err := reopened.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if restored == nil {
		t.Fatal("expected job to survive restart")
	}
	if restored.Status != queue.StatusPending {
		t.Fatalf("expected uploading job coerced to pending, got %s", restored.Status)
	}
	if restored.AttemptCount != 2 {
		t.Fatalf("expected attempt count preserved, got %d", restored.AttemptCount)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.EnqueueJob(t, store, "rec-1", "First Take")

	now := time.Now().UTC()
	claimed, err := store.Claim(ctx, job.ID, now)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to win")
	}

	again, err := store.Claim(ctx, job.ID, now)
	if err != nil {
		t.Fatalf("second Claim failed: %v", err)
	}
	if again {
		t.Fatal("expected second claim on the same job to lose")
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != queue.StatusUploading {
		t.Fatalf("expected uploading after claim, got %s", stored.Status)
	}
	if stored.LastAttempt == nil {
		t.Fatal("expected claim to stamp last attempt")
	}
}

func TestUpdateRejectsCompletedStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.EnqueueJob(t, store, "rec-done", "Finished Upload")
	job.Status = queue.StatusCompleted
	if err := store.Update(context.Background(), job); err == nil {
		t.Fatal("expected completed status to be rejected")
	}
}

func TestRetryFailedSkipsDataLoss(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	transient := testsupport.EnqueueJob(t, store, "rec-transient", "Flaky Network")
	transient.AttemptCount = 3
	transient.SetFailed("connection reset", false)
	if err := store.Update(ctx, transient); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	lost := testsupport.EnqueueJob(t, store, "rec-lost", "Evicted Bytes")
	lost.SetFailed("recording bytes no longer cached", true)
	if err := store.Update(ctx, lost); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retried, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 job retried, got %d", retried)
	}

	restored, err := store.GetByID(ctx, transient.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if restored.Status != queue.StatusPending {
		t.Fatalf("expected retried job pending, got %s", restored.Status)
	}
	if restored.LastError != "" {
		t.Fatalf("expected error cleared, got %q", restored.LastError)
	}
	if restored.AttemptCount != 3 {
		t.Fatalf("expected attempt count preserved, got %d", restored.AttemptCount)
	}

	stillLost, err := store.GetByID(ctx, lost.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stillLost.Status != queue.StatusFailed || !stillLost.DataLoss {
		t.Fatalf("expected data-loss job to stay failed, got %#v", stillLost)
	}
}

func TestRetryFailedByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.EnqueueJob(t, store, "rec-a", "First")
	first.SetFailed("timeout", false)
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	second := testsupport.EnqueueJob(t, store, "rec-b", "Second")
	second.SetFailed("timeout", false)
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retried, err := store.RetryFailed(ctx, first.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 job retried, got %d", retried)
	}

	untouched, err := store.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusFailed {
		t.Fatalf("expected unselected job to stay failed, got %s", untouched.Status)
	}
}

func TestClearFailedLeavesPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.EnqueueJob(t, store, "rec-pending", "Waiting")
	failed := testsupport.EnqueueJob(t, store, "rec-failed", "Broken")
	failed.SetFailed("server error", false)
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cleared, err := store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 job cleared, got %d", cleared)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != pending.ID {
		t.Fatalf("expected only pending job to remain, got %#v", remaining)
	}
}

func TestRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueJob(t, store, "rec-rm", "Removable")

	removed, err := store.Remove(ctx, job.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report a deleted row")
	}

	again, err := store.Remove(ctx, job.ID)
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if again {
		t.Fatal("expected second removal to report no rows")
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.EnqueueJob(t, store, "rec-1", "One")
	testsupport.EnqueueJob(t, store, "rec-2", "Two")
	failed := testsupport.EnqueueJob(t, store, "rec-3", "Three")
	failed.SetFailed("boom", false)
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 2 || stats[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestEngineStateRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	initial, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if initial.LastSync != nil || initial.LastSuccessfulSync != nil || initial.Online {
		t.Fatalf("expected zero state on fresh database, got %#v", initial)
	}

	syncedAt := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	state := queue.EngineState{
		LastSync:           &syncedAt,
		LastSuccessfulSync: &syncedAt,
		Online:             true,
	}
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.LastSync == nil || !loaded.LastSync.Equal(syncedAt) {
		t.Fatalf("unexpected last sync: %#v", loaded.LastSync)
	}
	if !loaded.Online {
		t.Fatal("expected online flag to persist")
	}

	later := syncedAt.Add(time.Hour)
	state.LastSync = &later
	state.Online = false
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("second SaveState failed: %v", err)
	}
	loaded, err = store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.LastSync == nil || !loaded.LastSync.Equal(later) {
		t.Fatalf("expected upserted last sync, got %#v", loaded.LastSync)
	}
	if loaded.Online {
		t.Fatal("expected online flag cleared")
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  queue.Status
		ok    bool
	}{
		{"pending", queue.StatusPending, true},
		{" Failed ", queue.StatusFailed, true},
		{"UPLOADING", queue.StatusUploading, true},
		{"completed", queue.StatusCompleted, true},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseStatus(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseStatus(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}
