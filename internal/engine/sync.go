package engine

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"greenroom/internal/logging"
	"greenroom/internal/queue"
	"greenroom/internal/services"
	"greenroom/internal/uploader"
)

// SyncResult reports the outcome of one sync pass.
type SyncResult struct {
	// Done is false when the pass was skipped by the single-flight guard,
	// an offline monitor, or an empty queue.
	Done        bool
	JobID       string
	Uploaded    bool
	NeedsReauth bool
	Message     string
}

// Sync drains exactly one pending job. Concurrent calls collapse to a
// single pass; the losers return immediately with Done false.
func (e *Engine) Sync(ctx context.Context) SyncResult {
	e.mu.Lock()
	if e.isSyncing {
		e.mu.Unlock()
		return SyncResult{Message: "sync already in progress"}
	}
	if !e.monitor.Online() {
		e.mu.Unlock()
		return SyncResult{Message: "remote unreachable"}
	}
	e.isSyncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.isSyncing = false
		e.inFlightCancel = nil
		e.mu.Unlock()
	}()

	result := e.syncOne(ctx)
	e.notifySubscribers()
	return result
}

func (e *Engine) syncOne(ctx context.Context) SyncResult {
	job, err := e.store.NextPending(ctx)
	if err != nil {
		e.logger.Error("failed to fetch next pending job",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_fetch_failed"))
		return SyncResult{Message: "queue read failed"}
	}
	if job == nil {
		return SyncResult{Message: "no pending jobs"}
	}

	now := e.clock()
	logger := e.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldRecordingID, job.RecordingID))

	e.mu.Lock()
	if e.batchUploaded == 0 {
		e.batchStart = now
	}
	e.mu.Unlock()

	// Compare-and-swap on the pending status: the daemon and a foreground
	// CLI sync share the database, so the read above can race another
	// engine's claim.
	claimed, err := e.store.Claim(ctx, job.ID, now)
	if err != nil {
		logger.Error("failed to mark job uploading",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_update_failed"))
		return SyncResult{Message: "queue write failed"}
	}
	if !claimed {
		return SyncResult{Message: "job claimed elsewhere"}
	}
	job.Status = queue.StatusUploading
	job.LastAttempt = &now
	e.recordSync(ctx, now)

	if !e.gate.Valid(ctx) && !e.gate.Refresh(ctx) {
		return e.failAuth(ctx, job)
	}

	entry, err := e.cache.Get(ctx, job.RecordingID)
	if err != nil {
		return e.failTransient(ctx, job, fmt.Sprintf("read cached recording: %v", err))
	}
	if entry == nil {
		return e.failDataLoss(ctx, job)
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.inFlightCancel = cancel
	e.mu.Unlock()
	defer cancel()

	result, err := e.uploader.Upload(uploadCtx, uploader.Request{
		RecordingID:     job.RecordingID,
		CollectionID:    job.CollectionID,
		SubCollectionID: job.SubCollectionID,
		UserID:          job.UserID,
		Video:           entry.Video,
		Thumbnail:       entry.Thumbnail,
		Snapshot:        job.Snapshot,
	})
	if err != nil && uploadCtx.Err() != nil {
		// Canceled mid-flight; hand the job back without burning an attempt.
		job.Status = queue.StatusPending
		if updateErr := e.store.Update(ctx, job); updateErr != nil {
			logger.Error("failed to restore canceled job",
				logging.Error(updateErr),
				logging.String(logging.FieldEventType, "job_update_failed"))
		}
		return SyncResult{Done: true, JobID: job.ID, Message: "upload canceled"}
	}
	if services.IsAuth(err) {
		return e.failAuth(ctx, job)
	}
	if err != nil {
		return e.failTransient(ctx, job, err.Error())
	}

	return e.completeJob(ctx, job, logger, result)
}

// failAuth records an auth failure without consuming a retry attempt.
func (e *Engine) failAuth(ctx context.Context, job *queue.Job) SyncResult {
	job.SetFailed("authentication required", false)
	if err := e.store.Update(ctx, job); err != nil {
		e.logger.Error("failed to record auth failure",
			logging.Error(err),
			logging.String(logging.FieldJobID, job.ID))
	}
	e.logger.Warn("upload blocked by invalid session",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEventType, "upload_auth_failed"))
	if err := e.notifier.NotifyReauthRequired(ctx); err != nil {
		e.logger.Warn("reauth notification failed", logging.Error(err))
	}
	return SyncResult{
		Done:        true,
		JobID:       job.ID,
		NeedsReauth: true,
		Message:     "authentication required",
	}
}

// failDataLoss permanently fails a job whose cached bytes are gone.
func (e *Engine) failDataLoss(ctx context.Context, job *queue.Job) SyncResult {
	message := fmt.Sprintf("recording %s no longer cached", job.RecordingID)
	job.SetFailed(message, true)
	if err := e.store.Update(ctx, job); err != nil {
		e.logger.Error("failed to record data loss",
			logging.Error(err),
			logging.String(logging.FieldJobID, job.ID))
	}
	e.logger.Error("cached bytes lost; job permanently failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldRecordingID, job.RecordingID),
		logging.String(logging.FieldEventType, "upload_data_loss"))
	if err := e.notifier.NotifyUploadFailed(ctx, job.Snapshot.Title, message); err != nil {
		e.logger.Warn("failure notification failed", logging.Error(err))
	}
	return SyncResult{
		Done:    true,
		JobID:   job.ID,
		Message: message,
	}
}

// failTransient counts the attempt and leaves the job eligible for retry.
func (e *Engine) failTransient(ctx context.Context, job *queue.Job, message string) SyncResult {
	job.AttemptCount++
	job.SetFailed(message, false)
	if err := e.store.Update(ctx, job); err != nil {
		e.logger.Error("failed to record upload failure",
			logging.Error(err),
			logging.String(logging.FieldJobID, job.ID))
	}
	e.logger.Warn("upload attempt failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("attempts", job.AttemptCount),
		logging.String("reason", message),
		logging.String(logging.FieldEventType, "upload_failed"))
	return SyncResult{
		Done:    true,
		JobID:   job.ID,
		Message: message,
	}
}

func (e *Engine) completeJob(ctx context.Context, job *queue.Job, logger *slog.Logger, result uploader.Result) SyncResult {
	if _, err := e.store.Remove(ctx, job.ID); err != nil {
		// The upload landed but the row survived; the next pass re-uploads.
		logger.Warn("failed to remove completed job", logging.Error(err))
		return SyncResult{Done: true, JobID: job.ID, Message: "completed job cleanup failed"}
	}
	if err := e.cache.Delete(ctx, job.RecordingID); err != nil {
		logger.Warn("failed to prune uploaded recording from cache", logging.Error(err))
	}

	now := e.clock()
	e.recordSuccess(ctx, now)

	e.mu.Lock()
	e.batchUploaded++
	uploaded := e.batchUploaded
	started := e.batchStart
	e.mu.Unlock()

	logger.Info("upload completed",
		logging.String("remote_video_ref", result.RemoteVideoRef),
		logging.String(logging.FieldEventType, "upload_completed"))
	if err := e.notifier.NotifyUploadCompleted(ctx, job.Snapshot.Title); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}

	remaining, err := e.store.NextPending(ctx)
	if err == nil && remaining == nil {
		if err := e.notifier.NotifyQueueDrained(ctx, uploaded, now.Sub(started)); err != nil {
			logger.Warn("drain notification failed", logging.Error(err))
		}
		e.mu.Lock()
		e.batchUploaded = 0
		e.mu.Unlock()
	}

	return SyncResult{
		Done:     true,
		JobID:    job.ID,
		Uploaded: true,
		Message:  "upload completed",
	}
}

func (e *Engine) recordSync(ctx context.Context, now time.Time) {
	state, err := e.store.LoadState(ctx)
	if err != nil {
		e.logger.Warn("failed to load engine state", logging.Error(err))
		return
	}
	state.LastSync = &now
	state.Online = e.monitor.Online()
	if err := e.store.SaveState(ctx, state); err != nil {
		e.logger.Warn("failed to save engine state", logging.Error(err))
	}
}

func (e *Engine) recordOnline(ctx context.Context, online bool) {
	state, err := e.store.LoadState(ctx)
	if err != nil {
		e.logger.Warn("failed to load engine state", logging.Error(err))
		return
	}
	state.Online = online
	if err := e.store.SaveState(ctx, state); err != nil {
		e.logger.Warn("failed to save engine state", logging.Error(err))
	}
}

func (e *Engine) recordSuccess(ctx context.Context, now time.Time) {
	state, err := e.store.LoadState(ctx)
	if err != nil {
		e.logger.Warn("failed to load engine state", logging.Error(err))
		return
	}
	state.LastSuccessfulSync = &now
	state.Online = e.monitor.Online()
	if err := e.store.SaveState(ctx, state); err != nil {
		e.logger.Warn("failed to save engine state", logging.Error(err))
	}
}
