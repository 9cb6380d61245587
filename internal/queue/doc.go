// Package queue persists upload job metadata in SQLite so queued
// recordings survive process restarts. Only metadata lives here; the
// recording bytes stay in the blob cache and are re-resolved by
// recording ID when a job is picked up.
package queue
