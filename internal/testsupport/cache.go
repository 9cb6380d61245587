package testsupport

import (
	"context"
	"testing"
	"time"

	"greenroom/internal/blobcache"
	"greenroom/internal/config"
	"greenroom/internal/logging"
)

// MustOpenCache opens a blob cache rooted in the test config's cache dir.
func MustOpenCache(t testing.TB, cfg *config.Config) *blobcache.Store {
	t.Helper()

	cache, err := blobcache.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("blobcache.New: %v", err)
	}
	return cache
}

// CacheRecording stores a small recording for tests and returns its metadata.
func CacheRecording(t testing.TB, cache *blobcache.Store, id, title string) blobcache.Metadata {
	t.Helper()

	meta := blobcache.Metadata{
		Title:        title,
		CollectionID: "col-test",
		CreatedAt:    time.Now().UTC(),
		Performers:   []string{"Test Performer"},
		Tags:         []string{"rehearsal"},
	}
	video := []byte("video-bytes-" + id)
	thumb := []byte("thumb-bytes-" + id)
	if err := cache.Put(context.Background(), id, video, thumb, meta); err != nil {
		t.Fatalf("cache.Put: %v", err)
	}
	return meta
}
