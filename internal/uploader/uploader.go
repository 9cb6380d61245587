package uploader

import (
	"context"

	"greenroom/internal/queue"
)

// Request carries the bytes and ownership metadata for one upload.
type Request struct {
	RecordingID     string
	CollectionID    string
	SubCollectionID string
	UserID          string
	Video           []byte
	Thumbnail       []byte
	Snapshot        queue.Snapshot
}

// Result holds the remote references returned on a successful upload.
type Result struct {
	RemoteVideoRef string
	RemoteThumbRef string
}

// Uploader delivers a recording to the remote store.
type Uploader interface {
	Upload(ctx context.Context, req Request) (Result, error)
}

// TokenSource supplies the bearer token attached to upload requests.
// session.TokenGate satisfies it.
type TokenSource interface {
	Token() string
}
