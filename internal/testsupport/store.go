package testsupport

import (
	"context"
	"testing"
	"time"

	"greenroom/internal/config"
	"greenroom/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueJob inserts a pending upload job for tests using the provided store.
func EnqueueJob(t testing.TB, store *queue.Store, recordingID, title string) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), &queue.Job{
		RecordingID:  recordingID,
		CollectionID: "col-test",
		Snapshot: queue.Snapshot{
			Title:      title,
			RecordedAt: time.Now().UTC(),
		},
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
