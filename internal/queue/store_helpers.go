package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const jobColumns = "id, recording_id, collection_id, collection_title, sub_collection_id, user_id, snapshot_json, status, attempt_count, last_attempt, last_error, data_loss, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		recordingID     string
		collectionID    string
		collectionTitle sql.NullString
		subCollectionID sql.NullString
		userID          sql.NullString
		snapshotJSON    string
		statusStr       string
		attemptCount    int
		lastAttemptRaw  sql.NullString
		lastError       sql.NullString
		dataLoss        sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&recordingID,
		&collectionID,
		&collectionTitle,
		&subCollectionID,
		&userID,
		&snapshotJSON,
		&statusStr,
		&attemptCount,
		&lastAttemptRaw,
		&lastError,
		&dataLoss,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		RecordingID:     recordingID,
		CollectionID:    collectionID,
		CollectionTitle: collectionTitle.String,
		SubCollectionID: subCollectionID.String,
		UserID:          userID.String,
		Status:          Status(statusStr),
		AttemptCount:    attemptCount,
		LastError:       lastError.String,
	}
	if dataLoss.Valid {
		job.DataLoss = dataLoss.Int64 != 0
	}
	if snapshotJSON != "" {
		if err := json.Unmarshal([]byte(snapshotJSON), &job.Snapshot); err != nil {
			return nil, err
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastAttemptRaw.Valid {
		if attempt, err := parseTimeString(lastAttemptRaw.String); err == nil {
			job.LastAttempt = &attempt
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
