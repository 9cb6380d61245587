package blobcache

import (
	"strings"
	"time"
)

// Metadata describes a cached recording. It is written alongside the bytes
// and returned verbatim on read.
type Metadata struct {
	Title           string    `json:"title"`
	CollectionID    string    `json:"collection_id"`
	SubCollectionID string    `json:"sub_collection_id"`
	CreatedAt       time.Time `json:"created_at"`
	Performers      []string  `json:"performers"`
	Tags            []string  `json:"tags"`
}

// Entry is a fully materialized cache record including media bytes.
type Entry struct {
	ID        string
	Video     []byte
	Thumbnail []byte
	Meta      Metadata
}

// EntryInfo summarizes a cache record without loading its bytes.
type EntryInfo struct {
	ID        string
	SizeBytes int64
	CreatedAt time.Time
	Meta      Metadata
}

func sanitizeID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		" ", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
	)
	value = replacer.Replace(value)
	value = strings.Trim(value, "-_.")
	return value
}
