package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/greenroom/config.toml"
		}
		return fmt.Errorf("remote.base_url is required. Set GREENROOM_REMOTE_URL env var or edit %s (create with 'greenroom config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Remote.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("remote.base_url must be an http(s) URL, got %q", c.Remote.BaseURL)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxMiB <= 0 {
		return errors.New("cache.max_mib must be positive")
	}
	if c.Cache.MaxAgeDays < 0 {
		return errors.New("cache.max_age_days must not be negative")
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.TokenURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Session.TokenURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("session.token_url must be a valid URL, got %q", c.Session.TokenURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
