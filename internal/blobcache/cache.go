package blobcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"greenroom/internal/config"
	"greenroom/internal/logging"
	"greenroom/internal/services"
)

const (
	videoFile = "video.bin"
	thumbFile = "thumb.bin"
	metaFile  = "entry.json"

	stagingPrefix = ".tmp-"
)

// Store is a durable key→(video, thumbnail, metadata) cache with a byte
// budget. When a new entry would exceed the budget, the oldest entries (by
// recording created-at) are evicted until it fits. A single entry larger
// than the whole budget is still stored; the budget is a target, not a
// reason to drop what the user just captured.
type Store struct {
	root     string
	capacity int64
	logger   *slog.Logger
}

// Stats describes current cache usage.
type Stats struct {
	Entries       int         `json:"entries"`
	TotalBytes    int64       `json:"total_bytes"`
	CapacityBytes int64       `json:"capacity_bytes"`
	Oldest        time.Time   `json:"oldest,omitzero"`
	EntryInfos    []EntryInfo `json:"entry_infos"`
}

// New builds a cache store rooted at the configured cache directory.
func New(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("blobcache: config is required")
	}
	root := strings.TrimSpace(cfg.Paths.CacheDir)
	if root == "" {
		return nil, errors.New("blobcache: cache directory is not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "blobcache", "init", "create cache directory", err)
	}
	return &Store{
		root:     root,
		capacity: cfg.CacheCapacityBytes(),
		logger:   logging.NewComponentLogger(logger, "blobcache"),
	}, nil
}

// Put stores a recording. The write is atomic: bytes are staged into a
// temporary directory and renamed into place, so a crash never leaves a
// half-written entry visible. Replacing an existing id is delete + insert.
func (s *Store) Put(ctx context.Context, id string, video, thumbnail []byte, meta Metadata) error {
	key := sanitizeID(id)
	if key == "" {
		return services.Wrap(services.ErrStorage, "blobcache", "put", "empty recording id", nil)
	}
	if len(video) == 0 {
		return services.Wrap(services.ErrStorage, "blobcache", "put", "empty video payload", nil)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	// Replace any existing entry for this id before accounting for space.
	if err := s.Delete(ctx, id); err != nil {
		return err
	}

	metaPayload, err := json.Marshal(metaRecord{ID: id, Meta: meta})
	if err != nil {
		return services.Wrap(services.ErrStorage, "blobcache", "put", "encode entry metadata", err)
	}

	// Usage is measured on disk, so the metadata file counts too.
	incoming := int64(len(video) + len(thumbnail) + len(metaPayload))
	if err := s.evictForSpace(ctx, incoming); err != nil {
		return err
	}

	staging := filepath.Join(s.root, stagingPrefix+key+"-"+uuid.NewString()[:8])
	if err := s.writeStaged(staging, video, thumbnail, metaPayload); err != nil {
		_ = os.RemoveAll(staging)
		return err
	}
	final := filepath.Join(s.root, key)
	if err := os.Rename(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return services.Wrap(services.ErrStorage, "blobcache", "put", "commit entry", err)
	}

	s.logger.InfoContext(ctx, "stored recording",
		logging.String(logging.FieldRecordingID, id),
		logging.Int64("entry_bytes", incoming),
	)
	return nil
}

// Get loads a recording with its bytes. Returns nil when the id is absent.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	dir := filepath.Join(s.root, sanitizeID(id))
	meta, storedID, err := readMetaFile(filepath.Join(dir, metaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrStorage, "blobcache", "get", "read entry metadata", err)
	}
	video, err := os.ReadFile(filepath.Join(dir, videoFile))
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "blobcache", "get", "read video bytes", err)
	}
	thumb, err := os.ReadFile(filepath.Join(dir, thumbFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, services.Wrap(services.ErrStorage, "blobcache", "get", "read thumbnail bytes", err)
	}
	if storedID == "" {
		storedID = id
	}
	return &Entry{ID: storedID, Video: video, Thumbnail: thumb, Meta: meta}, nil
}

// Delete removes a recording. Deleting an absent id succeeds silently.
func (s *Store) Delete(ctx context.Context, id string) error {
	key := sanitizeID(id)
	if key == "" {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(s.root, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrStorage, "blobcache", "delete", "remove entry", err)
	}
	return nil
}

// List returns entry summaries sorted oldest first, without loading bytes.
func (s *Store) List(ctx context.Context) ([]EntryInfo, error) {
	return s.scan()
}

// EvictOlderThan removes entries whose recordings are older than maxAge and
// returns the number deleted. This is housekeeping independent of the byte
// budget.
func (s *Store) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := s.scan()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, entry := range entries {
		if !entry.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.Delete(ctx, entry.ID); err != nil {
			return deleted, err
		}
		deleted++
		s.logger.InfoContext(ctx, "evicted aged recording",
			logging.String(logging.FieldRecordingID, entry.ID),
			logging.Time("recorded_at", entry.CreatedAt),
		)
	}
	return deleted, nil
}

// Stats returns current usage for diagnostics and CLI display.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	entries, err := s.scan()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Entries:       len(entries),
		CapacityBytes: s.capacity,
		EntryInfos:    entries,
	}
	for _, entry := range entries {
		stats.TotalBytes += entry.SizeBytes
	}
	if len(entries) > 0 {
		stats.Oldest = entries[0].CreatedAt
	}
	return stats, nil
}

// evictForSpace removes oldest entries until incoming bytes fit the budget.
// An incoming payload larger than the whole budget empties the cache and is
// then accepted anyway.
func (s *Store) evictForSpace(ctx context.Context, incoming int64) error {
	entries, err := s.scan()
	if err != nil {
		return err
	}
	var usage int64
	for _, entry := range entries {
		usage += entry.SizeBytes
	}
	for _, entry := range entries {
		if usage+incoming <= s.capacity {
			return nil
		}
		if err := s.Delete(ctx, entry.ID); err != nil {
			return err
		}
		usage -= entry.SizeBytes
		s.logger.InfoContext(ctx, "evicted recording for space",
			logging.String(logging.FieldRecordingID, entry.ID),
			logging.Int64("entry_bytes", entry.SizeBytes),
			logging.Int64("incoming_bytes", incoming),
		)
	}
	return nil
}

func (s *Store) writeStaged(staging string, video, thumbnail, metaPayload []byte) error {
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "blobcache", "put", "create staging directory", err)
	}
	if err := writeFileSync(filepath.Join(staging, videoFile), video); err != nil {
		return services.Wrap(services.ErrStorage, "blobcache", "put", "write video bytes", err)
	}
	if len(thumbnail) > 0 {
		if err := writeFileSync(filepath.Join(staging, thumbFile), thumbnail); err != nil {
			return services.Wrap(services.ErrStorage, "blobcache", "put", "write thumbnail bytes", err)
		}
	}
	if err := writeFileSync(filepath.Join(staging, metaFile), metaPayload); err != nil {
		return services.Wrap(services.ErrStorage, "blobcache", "put", "write entry metadata", err)
	}
	return nil
}

type metaRecord struct {
	ID   string   `json:"id"`
	Meta Metadata `json:"meta"`
}

func (s *Store) scan() ([]EntryInfo, error) {
	rootEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrStorage, "blobcache", "scan", "list cache root", err)
	}

	infos := make([]EntryInfo, 0, len(rootEntries))
	for _, dirEntry := range rootEntries {
		if !dirEntry.IsDir() || strings.HasPrefix(dirEntry.Name(), stagingPrefix) {
			continue
		}
		dir := filepath.Join(s.root, dirEntry.Name())
		meta, id, err := readMetaFile(filepath.Join(dir, metaFile))
		if err != nil {
			s.logger.Warn("skipping unreadable cache entry",
				logging.String("entry_dir", dir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "cache_entry_skipped"),
				logging.String(logging.FieldErrorHint, "inspect cache directory permissions or remove the corrupted entry"),
			)
			continue
		}
		if id == "" {
			id = dirEntry.Name()
		}
		size, err := dirSize(dir)
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, "blobcache", "scan", fmt.Sprintf("size entry %s", dir), err)
		}
		createdAt := meta.CreatedAt
		if createdAt.IsZero() {
			if info, statErr := dirEntry.Info(); statErr == nil {
				createdAt = info.ModTime()
			}
		}
		infos = append(infos, EntryInfo{ID: id, SizeBytes: size, CreatedAt: createdAt, Meta: meta})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

func readMetaFile(path string) (Metadata, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, "", err
	}
	var record metaRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return Metadata{}, "", err
	}
	return record.Meta, record.ID, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	return size, err
}

func writeFileSync(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
