// Package engine drives the durable upload pipeline: recordings are
// cached locally first, a pending job is appended to the persistent
// queue, and uploads drain one at a time whenever the remote is
// reachable and the session holds.
package engine
