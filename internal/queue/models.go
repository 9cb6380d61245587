package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of an upload job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// persistedStatuses are the statuses a job may hold at rest. Completed
// jobs are removed in the same operation that records success, so
// "completed" never reaches the database.
var persistedStatuses = map[Status]struct{}{
	StatusPending:   {},
	StatusUploading: {},
	StatusFailed:    {},
}

// Snapshot carries the descriptive metadata captured when a recording
// was enqueued. It rides along with the job so the remote service
// receives the same description even if the library entry changes later.
type Snapshot struct {
	Title              string    `json:"title"`
	RecordedAt         time.Time `json:"recorded_at"`
	SubCollectionTitle string    `json:"sub_collection_title,omitempty"`
	Performers         []string  `json:"performers,omitempty"`
	Tags               []string  `json:"tags,omitempty"`
	Notes              string    `json:"notes,omitempty"`
}

// Job is an upload job persisted in SQLite.
type Job struct {
	ID              string
	RecordingID     string
	CollectionID    string
	CollectionTitle string
	SubCollectionID string
	UserID          string
	Snapshot        Snapshot
	Status          Status
	AttemptCount    int
	LastAttempt     *time.Time
	LastError       string
	DataLoss        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EngineState is the single-row sync bookkeeping persisted alongside jobs.
type EngineState struct {
	LastSync           *time.Time
	LastSuccessfulSync *time.Time
	Online             bool
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsPersisted reports whether a status may be stored durably.
func IsPersisted(status Status) bool {
	_, ok := persistedStatuses[status]
	return ok
}

// NewJobID builds a sortable job identifier from the enqueue time and a
// random suffix. The time prefix keeps identifiers roughly ordered in
// logs; ordering guarantees come from created_at, not the ID.
func NewJobID(now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return now.UTC().Format("20060102T150405") + "-" + suffix
}

// SetFailed marks the job as failed with the given error message.
// Data-loss failures are permanent and excluded from retries.
func (j *Job) SetFailed(message string, dataLoss bool) {
	j.Status = StatusFailed
	j.LastError = message
	if dataLoss {
		j.DataLoss = true
	}
}

// IsRetryable reports whether a retry request may return this job to pending.
func (j Job) IsRetryable() bool {
	return j.Status == StatusFailed && !j.DataLoss
}
