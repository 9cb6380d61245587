package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"greenroom/internal/config"
	"greenroom/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyUploadCompleted(context.Background(), "Example"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	type sent struct {
		title    string
		message  string
		tags     string
		priority string
	}
	var got sent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = sent{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyUploadCompleted(ctx, "Act One"); err != nil {
		t.Fatalf("NotifyUploadCompleted failed: %v", err)
	}
	if got.title != "Greenroom - Uploaded" || got.message != "Recording uploaded: Act One" {
		t.Fatalf("unexpected upload-completed payload: %#v", got)
	}

	if err := svc.NotifyUploadFailed(ctx, "Act One", "server returned 503"); err != nil {
		t.Fatalf("NotifyUploadFailed failed: %v", err)
	}
	if got.priority != "high" || got.tags != "greenroom,upload,failed" {
		t.Fatalf("unexpected upload-failed payload: %#v", got)
	}

	if err := svc.NotifyQueueDrained(ctx, 3, 95*time.Second); err != nil {
		t.Fatalf("NotifyQueueDrained failed: %v", err)
	}
	if got.message != "Upload queue drained: 3 recordings in 1m35s" {
		t.Fatalf("unexpected queue-drained message: %q", got.message)
	}

	if err := svc.NotifyReauthRequired(ctx); err != nil {
		t.Fatalf("NotifyReauthRequired failed: %v", err)
	}
	if got.title != "Greenroom - Sign In Required" {
		t.Fatalf("unexpected reauth payload: %#v", got)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from rejecting server")
	}
}
