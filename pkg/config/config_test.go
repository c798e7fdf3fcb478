package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.ClientID = "11111111-2222-3333-4444-555555555555"
	cfg.Tenant = "contoso.onmicrosoft.com"
	cfg.Scopes = []string{"offline_access", "Calendars.ReadWrite", "Tasks.ReadWrite"}
	cfg.TokenStorage = StorageKeychain

	require.NoError(t, Save(path, &cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.ClientID, loaded.ClientID)
	assert.Equal(t, cfg.Tenant, loaded.Tenant)
	assert.Equal(t, cfg.Scopes, loaded.Scopes)
	assert.Equal(t, StorageKeychain, loaded.TokenStorage)
}

func TestLoadFillsVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client-id: abc\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, VersionV1, loaded.Version)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client-id: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing client id", func(c *Config) { c.ClientID = " " }, "client-id is required"},
		{"bad storage", func(c *Config) { c.TokenStorage = "vault" }, "unknown token-storage"},
		{"device endpoint alone", func(c *Config) { c.DeviceEndpoint = "https://idp/device" }, "set together"},
		{"both endpoints", func(c *Config) {
			c.DeviceEndpoint = "https://idp/device"
			c.TokenEndpoint = "https://idp/token"
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ClientID = "abc"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDefaultPathsHonorEnvOverrides(t *testing.T) {
	t.Setenv("AUTHCTL_CONFIG", "/custom/config.yaml")
	t.Setenv("AUTHCTL_STATE_DIR", "/custom/state")
	assert.Equal(t, "/custom/config.yaml", DefaultConfigPath())
	assert.Equal(t, "/custom/state", DefaultStateDir())
}
