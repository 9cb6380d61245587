package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"greenroom/internal/config"
	"greenroom/internal/logging"
)

// Gate answers whether the current session may upload and attempts a
// refresh when it may not.
type Gate interface {
	Valid(ctx context.Context) bool
	Refresh(ctx context.Context) bool
}

// Clock supplies the current time; injected for tests.
type Clock func() time.Time

// TokenGate is a Gate backed by a bearer token with an expiry, refreshed
// against a token endpoint.
type TokenGate struct {
	tokenURL string
	leeway   time.Duration
	client   *http.Client
	clock    Clock
	logger   *slog.Logger

	mu           sync.Mutex
	token        string
	refreshToken string
	expiresAt    time.Time
}

// NewTokenGate builds a TokenGate from configuration. Credentials are
// seeded later with SetCredentials.
func NewTokenGate(cfg *config.Config, logger *slog.Logger) *TokenGate {
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	gateLogger := logger
	if gateLogger == nil {
		gateLogger = logging.NewNop()
	}
	return &TokenGate{
		tokenURL: cfg.Session.TokenURL,
		leeway:   time.Duration(cfg.Session.RefreshLeeway) * time.Second,
		client:   &http.Client{Timeout: timeout},
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   gateLogger.With(logging.String(logging.FieldComponent, "session")),
	}
}

// WithClock overrides the gate's time source.
func (g *TokenGate) WithClock(clock Clock) *TokenGate {
	if clock != nil {
		g.clock = clock
	}
	return g
}

// SetCredentials seeds or replaces the stored token pair.
func (g *TokenGate) SetCredentials(token, refreshToken string, expiresAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
	g.refreshToken = refreshToken
	g.expiresAt = expiresAt
}

// Token returns the current bearer token, empty when no session exists.
func (g *TokenGate) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Valid reports whether the stored token is usable, counting tokens inside
// the refresh leeway window as already expired.
func (g *TokenGate) Valid(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token == "" {
		return false
	}
	if g.expiresAt.IsZero() {
		return true
	}
	return g.clock().Before(g.expiresAt.Add(-g.leeway))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Refresh exchanges the refresh token for a new session. It reports
// success; failure details are logged, never surfaced.
func (g *TokenGate) Refresh(ctx context.Context) bool {
	g.mu.Lock()
	refreshToken := g.refreshToken
	tokenURL := g.tokenURL
	g.mu.Unlock()

	if tokenURL == "" || refreshToken == "" {
		return false
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		g.logger.Error("marshal refresh request", logging.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(body))
	if err != nil {
		g.logger.Error("build refresh request", logging.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("session refresh failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "session_refresh_failed"))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Warn("session refresh rejected",
			logging.Error(fmt.Errorf("token endpoint returned %s", resp.Status)),
			logging.String(logging.FieldEventType, "session_refresh_rejected"))
		return false
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		g.logger.Error("decode refresh response", logging.Error(err))
		return false
	}
	if parsed.Token == "" {
		return false
	}

	g.mu.Lock()
	g.token = parsed.Token
	if parsed.RefreshToken != "" {
		g.refreshToken = parsed.RefreshToken
	}
	g.expiresAt = parsed.ExpiresAt
	g.mu.Unlock()

	g.logger.Info("session refreshed",
		logging.String(logging.FieldEventType, "session_refreshed"))
	return true
}
