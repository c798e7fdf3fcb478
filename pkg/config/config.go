package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"

	StorageFile     = "file"
	StorageKeychain = "keychain"
)

// Config describes one identity: the public client, its authority, and
// where its credentials are kept.
type Config struct {
	Version  string `yaml:"version"`
	ClientID string `yaml:"client-id"`
	// Tenant selects the Entra ID authority ("common" when empty).
	Tenant string `yaml:"tenant,omitempty"`
	// Issuer switches endpoint resolution to OIDC discovery for
	// non-Microsoft providers.
	Issuer string   `yaml:"issuer,omitempty"`
	Scopes []string `yaml:"scopes,omitempty"`
	// StateDir is the directory the file store is scoped to. One logical
	// identity per directory; callers needing several identities use
	// several directories.
	StateDir     string `yaml:"state-dir,omitempty"`
	TokenStorage string `yaml:"token-storage,omitempty"`
	// Explicit endpoint overrides, set together. They take precedence
	// over both the tenant template and discovery.
	DeviceEndpoint string `yaml:"device-endpoint,omitempty"`
	TokenEndpoint  string `yaml:"token-endpoint,omitempty"`

	HTTPTimeoutSeconds int `yaml:"http-timeout-seconds,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Tenant:  "common",
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("client-id is required")
	}
	switch c.TokenStorage {
	case "", StorageFile, StorageKeychain:
	default:
		return fmt.Errorf("unknown token-storage: %s (expected file or keychain)", c.TokenStorage)
	}
	if (c.DeviceEndpoint == "") != (c.TokenEndpoint == "") {
		return errors.New("device-endpoint and token-endpoint must be set together")
	}
	return nil
}
