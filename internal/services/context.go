package services

import "context"

type contextKey string

const (
	jobIDKey       contextKey = "job_id"
	recordingIDKey contextKey = "recording_id"
)

// WithJobID annotates context with the upload job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the upload job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRecordingID annotates context with the cached recording identifier.
func WithRecordingID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, recordingIDKey, id)
}

// RecordingIDFromContext extracts the recording identifier if present.
func RecordingIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recordingIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
