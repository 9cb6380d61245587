// Package notifications publishes upload lifecycle events to an ntfy
// topic. All calls are best-effort; callers log failures and move on.
package notifications
