package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorage marks local cache read/write failures.
	ErrStorage = errors.New("storage error")
	// ErrAuth marks credential failures; these never consume a retry attempt.
	ErrAuth = errors.New("authentication required")
	// ErrDataLoss marks jobs whose cached bytes are gone; never retried.
	ErrDataLoss = errors.New("cached data lost")
	// ErrNotFound marks references to records that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures worth retrying on a later sync attempt.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsAuth reports whether an error chain carries the auth marker.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsDataLoss reports whether an error chain carries the data-loss marker.
func IsDataLoss(err error) bool { return errors.Is(err, ErrDataLoss) }

// Retryable reports whether a failed upload attempt should stay eligible for
// a later retry. Auth failures remain retryable (after re-authentication) but
// are handled separately so they never count against the attempt budget.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrDataLoss)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
