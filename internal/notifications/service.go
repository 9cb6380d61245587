package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"greenroom/internal/config"
)

const userAgent = "Greenroom-Go/0.1.0"

// Service defines the notification surface exposed to the upload engine.
type Service interface {
	NotifyUploadCompleted(ctx context.Context, title string) error
	NotifyUploadFailed(ctx context.Context, title, reason string) error
	NotifyQueueDrained(ctx context.Context, uploaded int, duration time.Duration) error
	NotifyReauthRequired(ctx context.Context) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyUploadCompleted(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Greenroom - Uploaded",
		message: fmt.Sprintf("Recording uploaded: %s", title),
		tags:    []string{"greenroom", "upload", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadFailed(ctx context.Context, title, reason string) error {
	title = strings.TrimSpace(title)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Upload failed: %s", title)
	if reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:    "Greenroom - Upload Failed",
		message:  message,
		tags:     []string{"greenroom", "upload", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, uploaded int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}
	data := payload{
		title:   "Greenroom - Queue Drained",
		message: fmt.Sprintf("Upload queue drained: %d recordings in %s", uploaded, durationText),
		tags:    []string{"greenroom", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReauthRequired(ctx context.Context) error {
	data := payload{
		title:    "Greenroom - Sign In Required",
		message:  "Uploads are paused until you sign in again",
		tags:     []string{"greenroom", "session", "reauth"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Greenroom - Test",
		message:  "Notification system test",
		tags:     []string{"greenroom", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyUploadCompleted(context.Context, string) error          { return nil }
func (noopService) NotifyUploadFailed(context.Context, string, string) error     { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, time.Duration) error { return nil }
func (noopService) NotifyReauthRequired(context.Context) error                   { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
