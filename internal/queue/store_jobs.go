package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Enqueue inserts a new pending job for a cached recording and returns the
// stored row.
func (s *Store) Enqueue(ctx context.Context, job *Job) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	if job.RecordingID == "" {
		return nil, errors.New("recording id is required")
	}
	if job.CollectionID == "" {
		return nil, errors.New("collection id is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := job.ID
	if id == "" {
		id = NewJobID(now)
	}

	snapshotJSON, err := json.Marshal(job.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO upload_jobs (
            id, recording_id, collection_id, collection_title, sub_collection_id,
            user_id, snapshot_json, status, attempt_count, last_attempt,
            last_error, data_loss, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		job.RecordingID,
		job.CollectionID,
		nullableString(job.CollectionTitle),
		nullableString(job.SubCollectionID),
		nullableString(job.UserID),
		string(snapshotJSON),
		StatusPending,
		0,
		nil,
		nil,
		0,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an upload job by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM upload_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByRecordingID returns the first job referencing a cached recording.
func (s *Store) FindByRecordingID(ctx context.Context, recordingID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM upload_jobs WHERE recording_id = ? ORDER BY created_at, rowid LIMIT 1`,
		recordingID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by recording id: %w", err)
	}
	return job, nil
}

// NextPending returns the oldest pending job, with insertion order breaking
// created-at ties.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM upload_jobs WHERE status = ? ORDER BY created_at, rowid LIMIT 1`,
		StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return job, nil
}

// Claim atomically transitions a pending job to uploading and stamps the
// attempt time. It reports false without error when the job is no longer
// pending, which happens when another engine sharing the database claimed
// it first.
func (s *Store) Claim(ctx context.Context, id string, attemptAt time.Time) (bool, error) {
	result, err := s.execWithRetry(
		ctx,
		`UPDATE upload_jobs SET status = ?, last_attempt = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusUploading,
		attemptAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	return claimed > 0, nil
}

// Update persists changes to an existing job. Completed jobs are never
// written back; record success with Remove instead.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if !IsPersisted(job.Status) {
		return fmt.Errorf("status %q is not persistable", job.Status)
	}
	snapshotJSON, err := json.Marshal(job.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE upload_jobs
         SET recording_id = ?, collection_id = ?, collection_title = ?,
             sub_collection_id = ?, user_id = ?, snapshot_json = ?, status = ?,
             attempt_count = ?, last_attempt = ?, last_error = ?, data_loss = ?,
             updated_at = ?
         WHERE id = ?`,
		job.RecordingID,
		job.CollectionID,
		nullableString(job.CollectionTitle),
		nullableString(job.SubCollectionID),
		nullableString(job.UserID),
		string(snapshotJSON),
		job.Status,
		job.AttemptCount,
		nullableTime(job.LastAttempt),
		nullableString(job.LastError),
		boolToInt(job.DataLoss),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM upload_jobs`
	orderClause := ` ORDER BY created_at, rowid`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM upload_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RetryFailed moves failed jobs back to pending and clears their error.
// Attempt counts are preserved. Jobs whose cached bytes were lost are
// permanently failed and never returned to pending.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE upload_jobs
            SET status = ?, last_error = NULL, updated_at = ?
            WHERE status = ? AND data_loss = 0`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE upload_jobs
        SET status = ?, last_error = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `' AND data_loss = 0`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed jobs from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM upload_jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM upload_jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ResetInFlight returns uploading jobs to pending. Called on open so an
// interrupted upload is retried rather than reported as in-flight.
func (s *Store) ResetInFlight(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE upload_jobs SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusUploading,
	)
	if err != nil {
		return 0, fmt.Errorf("reset in-flight jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM upload_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
