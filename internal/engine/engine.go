package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"greenroom/internal/blobcache"
	"greenroom/internal/config"
	"greenroom/internal/connectivity"
	"greenroom/internal/logging"
	"greenroom/internal/notifications"
	"greenroom/internal/queue"
	"greenroom/internal/services"
	"greenroom/internal/session"
	"greenroom/internal/uploader"
)

// RecordingCache is the slice of the blob cache the engine touches.
type RecordingCache interface {
	Get(ctx context.Context, id string) (*blobcache.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Clock supplies the current time; injected for tests.
type Clock func() time.Time

// Engine owns the upload queue: it appends jobs for cached recordings
// and drains them one upload per sync pass.
type Engine struct {
	cfg      *config.Config
	store    *queue.Store
	cache    RecordingCache
	gate     session.Gate
	uploader uploader.Uploader
	monitor  connectivity.Monitor
	notifier notifications.Service
	clock    Clock
	logger   *slog.Logger

	subMu   sync.Mutex
	subNext int
	subs    map[int]func()

	mu             sync.Mutex
	isSyncing      bool
	inFlightCancel context.CancelFunc
	batchStart     time.Time
	batchUploaded  int
}

// New constructs an Engine with the default wall clock.
func New(cfg *config.Config, store *queue.Store, cache RecordingCache, gate session.Gate, up uploader.Uploader, monitor connectivity.Monitor, notifier notifications.Service, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	engineLogger := logger
	if engineLogger == nil {
		engineLogger = logging.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		store:    store,
		cache:    cache,
		gate:     gate,
		uploader: up,
		monitor:  monitor,
		notifier: notifier,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   engineLogger.With(logging.String(logging.FieldComponent, "engine")),
		subs:     make(map[int]func()),
	}
	// Connectivity transitions are state changes: persist them so status
	// surfaces reading the database see the latest reachability, then fan
	// out to subscribers.
	monitor.Subscribe(func(online bool) {
		e.recordOnline(context.Background(), online)
		e.notifySubscribers()
	})
	return e
}

// WithClock overrides the engine's time source.
func (e *Engine) WithClock(clock Clock) *Engine {
	if clock != nil {
		e.clock = clock
	}
	return e
}

// EnqueueRequest describes a cached recording to queue for upload.
type EnqueueRequest struct {
	RecordingID        string
	CollectionID       string
	CollectionTitle    string
	SubCollectionID    string
	SubCollectionTitle string
	UserID             string
	Notes              string
}

// Enqueue appends a pending upload job for a recording already present in
// the blob cache. The job is persisted before Enqueue returns; a sync is
// kicked off in the background when the remote is reachable.
func (e *Engine) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	if req.RecordingID == "" {
		return "", errors.New("recording id is required")
	}

	entry, err := e.cache.Get(ctx, req.RecordingID)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", services.Wrap(services.ErrNotFound, "engine", "enqueue",
			fmt.Sprintf("recording %s is not cached", req.RecordingID), nil)
	}

	collectionID := req.CollectionID
	if collectionID == "" {
		collectionID = entry.Meta.CollectionID
	}
	subCollectionID := req.SubCollectionID
	if subCollectionID == "" {
		subCollectionID = entry.Meta.SubCollectionID
	}

	job, err := e.store.Enqueue(ctx, &queue.Job{
		RecordingID:     req.RecordingID,
		CollectionID:    collectionID,
		CollectionTitle: req.CollectionTitle,
		SubCollectionID: subCollectionID,
		UserID:          req.UserID,
		Snapshot: queue.Snapshot{
			Title:              entry.Meta.Title,
			RecordedAt:         entry.Meta.CreatedAt,
			SubCollectionTitle: req.SubCollectionTitle,
			Performers:         entry.Meta.Performers,
			Tags:               entry.Meta.Tags,
			Notes:              req.Notes,
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "engine", "enqueue", "persist job", err)
	}

	e.logger.Info("upload job enqueued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldRecordingID, job.RecordingID),
		logging.String(logging.FieldEventType, "job_enqueued"))
	e.notifySubscribers()
	e.triggerBackgroundSync()
	return job.ID, nil
}

// RetryFailedItems returns failed jobs to pending, skipping those whose
// cached bytes were lost, and kicks off a sync when reachable.
func (e *Engine) RetryFailedItems(ctx context.Context) (int64, error) {
	count, err := e.store.RetryFailed(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		e.logger.Info("failed jobs returned to pending",
			logging.Int64("count", count),
			logging.String(logging.FieldEventType, "jobs_retried"))
		e.notifySubscribers()
		e.triggerBackgroundSync()
	}
	return count, nil
}

// ClearFailedItems drops all failed jobs. Cached bytes stay put until the
// cache evicts them on its own schedule.
func (e *Engine) ClearFailedItems(ctx context.Context) (int64, error) {
	count, err := e.store.ClearFailed(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		e.notifySubscribers()
	}
	return count, nil
}

// State is a point-in-time view of the queue for status surfaces.
type State struct {
	Pending            int
	Uploading          int
	Failed             int
	LastSync           *time.Time
	LastSuccessfulSync *time.Time
	Online             bool
	Syncing            bool
}

// State reports queue counts and sync bookkeeping. Pure read.
func (e *Engine) State(ctx context.Context) (State, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return State{}, err
	}
	persisted, err := e.store.LoadState(ctx)
	if err != nil {
		return State{}, err
	}

	e.mu.Lock()
	syncing := e.isSyncing
	e.mu.Unlock()

	return State{
		Pending:            stats[queue.StatusPending],
		Uploading:          stats[queue.StatusUploading],
		Failed:             stats[queue.StatusFailed],
		LastSync:           persisted.LastSync,
		LastSuccessfulSync: persisted.LastSuccessfulSync,
		Online:             e.monitor.Online(),
		Syncing:            syncing,
	}, nil
}

// Subscribe registers a listener invoked after every state-affecting
// transition until the returned cancel function is called.
func (e *Engine) Subscribe(fn func()) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.subNext
	e.subNext++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

// CancelInFlight aborts the upload currently on the wire, if any. The
// interrupted job is returned to pending by the sync pass that owns it.
func (e *Engine) CancelInFlight() {
	e.mu.Lock()
	cancel := e.inFlightCancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) notifySubscribers() {
	e.subMu.Lock()
	listeners := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		listeners = append(listeners, fn)
	}
	e.subMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (e *Engine) triggerBackgroundSync() {
	e.mu.Lock()
	busy := e.isSyncing
	e.mu.Unlock()
	if busy || !e.monitor.Online() {
		return
	}
	go func() {
		e.Sync(context.Background())
	}()
}
