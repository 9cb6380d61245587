package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const credentialsFile = "session.json"

// Credentials is the token pair persisted between runs so the daemon can
// resume uploading without the host application re-seeding the gate.
type Credentials struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// CredentialsPath returns the location of the persisted credentials inside
// the data directory.
func CredentialsPath(dataDir string) string {
	return filepath.Join(dataDir, credentialsFile)
}

// LoadCredentials reads persisted credentials. A missing file is not an
// error; it returns empty credentials and false.
func LoadCredentials(path string) (Credentials, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, false, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, true, nil
}

// SaveCredentials writes the token pair with owner-only permissions.
func SaveCredentials(path string, creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Seed loads persisted credentials into the gate when a credentials file
// exists. It reports whether anything was loaded.
func (g *TokenGate) Seed(path string) (bool, error) {
	creds, ok, err := LoadCredentials(path)
	if err != nil || !ok {
		return false, err
	}
	g.SetCredentials(creds.Token, creds.RefreshToken, creds.ExpiresAt)
	return true, nil
}
