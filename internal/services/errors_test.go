package services_test

import (
	"errors"
	"strings"
	"testing"

	"greenroom/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "uploader", "post", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"uploader", "post", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "cache", "write", "disk full", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to transient, got %v", err)
	}
}

func TestClassificationHelpers(t *testing.T) {
	authErr := services.Wrap(services.ErrAuth, "session", "refresh", "token expired", nil)
	if !services.IsAuth(authErr) {
		t.Fatalf("expected auth classification for %v", authErr)
	}
	if services.IsDataLoss(authErr) {
		t.Fatalf("auth error misclassified as data loss")
	}

	lossErr := services.Wrap(services.ErrDataLoss, "engine", "resolve", "bytes evicted", nil)
	if !services.IsDataLoss(lossErr) {
		t.Fatalf("expected data-loss classification for %v", lossErr)
	}
	if services.Retryable(lossErr) {
		t.Fatal("data-loss errors must not be retryable")
	}

	transientErr := services.Wrap(services.ErrTransient, "uploader", "post", "timeout", nil)
	if !services.Retryable(transientErr) {
		t.Fatal("transient errors must be retryable")
	}
	if services.Retryable(nil) {
		t.Fatal("nil error must not be retryable")
	}
}
