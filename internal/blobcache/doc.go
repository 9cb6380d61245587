// Package blobcache stores captured recordings on local disk before they are
// delivered to the remote store. Each entry holds the video bytes, an
// optional thumbnail, and the recording metadata. The cache enforces a byte
// budget by evicting the oldest recordings first; writes are staged and
// renamed so a crash never exposes a partial entry.
package blobcache
