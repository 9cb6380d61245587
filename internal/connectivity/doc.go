// Package connectivity tracks whether the remote recording service is
// reachable. Monitors report the last known state and notify subscribers
// only when the state changes.
package connectivity
