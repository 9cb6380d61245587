package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeSession()
	c.normalizeTimings()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() {
	if c.Remote.BaseURL == "" {
		if value, ok := os.LookupEnv("GREENROOM_REMOTE_URL"); ok {
			c.Remote.BaseURL = value
		}
	}
	c.Remote.BaseURL = strings.TrimSpace(c.Remote.BaseURL)
	c.Remote.UploadPath = strings.TrimSpace(c.Remote.UploadPath)
	if c.Remote.UploadPath == "" {
		c.Remote.UploadPath = defaultUploadPath
	}
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRemoteTimeout
	}
}

func (c *Config) normalizeSession() {
	c.Session.TokenURL = strings.TrimSpace(c.Session.TokenURL)
	if c.Session.RefreshLeeway <= 0 {
		c.Session.RefreshLeeway = defaultRefreshLeeway
	}
}

func (c *Config) normalizeTimings() {
	if c.Connectivity.ProbeInterval <= 0 {
		c.Connectivity.ProbeInterval = defaultProbeInterval
	}
	if c.Connectivity.ProbeTimeout <= 0 {
		c.Connectivity.ProbeTimeout = defaultProbeTimeout
	}
	if c.Engine.SyncInterval <= 0 {
		c.Engine.SyncInterval = defaultSyncInterval
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
