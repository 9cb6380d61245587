package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"greenroom/internal/config"
	"greenroom/internal/logging"
	"greenroom/internal/services"
)

// HTTPUploader posts recordings to the remote store as multipart forms
// with bearer auth.
type HTTPUploader struct {
	uploadURL string
	tokens    TokenSource
	client    *http.Client
	logger    *slog.Logger
}

// NewHTTPUploader builds an uploader from configuration.
func NewHTTPUploader(cfg *config.Config, tokens TokenSource, logger *slog.Logger) *HTTPUploader {
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	uploadLogger := logger
	if uploadLogger == nil {
		uploadLogger = logging.NewNop()
	}
	return &HTTPUploader{
		uploadURL: cfg.UploadURL(),
		tokens:    tokens,
		client:    &http.Client{Timeout: timeout},
		logger:    uploadLogger.With(logging.String(logging.FieldComponent, "uploader")),
	}
}

type uploadResponse struct {
	VideoRef     string `json:"video_ref"`
	ThumbnailRef string `json:"thumbnail_ref"`
}

// Upload sends one recording. HTTP 401 and 403 classify as an auth
// failure; every other failure is transient and may be retried.
func (u *HTTPUploader) Upload(ctx context.Context, req Request) (Result, error) {
	body, contentType, err := buildForm(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "uploader", "upload", "build multipart form", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "uploader", "upload", "build request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if u.tokens != nil {
		if token := u.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := u.client.Do(httpReq)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "uploader", "upload", "send request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, services.Wrap(services.ErrAuth, "uploader", "upload",
			fmt.Sprintf("server rejected credentials with %s", resp.Status), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, services.Wrap(services.ErrTransient, "uploader", "upload",
			fmt.Sprintf("server returned %s: %s", resp.Status, strings.TrimSpace(string(detail))), nil)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "uploader", "upload", "decode response", err)
	}

	u.logger.Info("recording uploaded",
		logging.String(logging.FieldRecordingID, req.RecordingID),
		logging.String(logging.FieldEventType, "upload_completed"))
	return Result{RemoteVideoRef: parsed.VideoRef, RemoteThumbRef: parsed.ThumbnailRef}, nil
}

func buildForm(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"recording_id":      req.RecordingID,
		"collection_id":     req.CollectionID,
		"sub_collection_id": req.SubCollectionID,
		"user_id":           req.UserID,
		"title":             req.Snapshot.Title,
		"notes":             req.Snapshot.Notes,
	}
	if !req.Snapshot.RecordedAt.IsZero() {
		fields["recorded_at"] = req.Snapshot.RecordedAt.UTC().Format(time.RFC3339)
	}
	if req.Snapshot.SubCollectionTitle != "" {
		fields["sub_collection_title"] = req.Snapshot.SubCollectionTitle
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, list := range []struct {
		name   string
		values []string
	}{
		{"performers", req.Snapshot.Performers},
		{"tags", req.Snapshot.Tags},
	} {
		if len(list.values) == 0 {
			continue
		}
		encoded, err := json.Marshal(list.values)
		if err != nil {
			return nil, "", fmt.Errorf("marshal %s: %w", list.name, err)
		}
		if err := writer.WriteField(list.name, string(encoded)); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", list.name, err)
		}
	}

	videoPart, err := writer.CreateFormFile("video", "recording.mp4")
	if err != nil {
		return nil, "", fmt.Errorf("create video part: %w", err)
	}
	if _, err := videoPart.Write(req.Video); err != nil {
		return nil, "", fmt.Errorf("write video part: %w", err)
	}

	if len(req.Thumbnail) > 0 {
		thumbPart, err := writer.CreateFormFile("thumbnail", "thumbnail.jpg")
		if err != nil {
			return nil, "", fmt.Errorf("create thumbnail part: %w", err)
		}
		if _, err := thumbPart.Write(req.Thumbnail); err != nil {
			return nil, "", fmt.Errorf("write thumbnail part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
