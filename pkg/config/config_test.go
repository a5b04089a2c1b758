package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sss", "config.json")

	cm, err := NewConfigManagerAt(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cm.GetConfig())
	assert.FileExists(t, path)

	// a second manager reads what the first wrote
	again, err := NewConfigManagerAt(path)
	require.NoError(t, err)
	assert.Equal(t, cm.GetConfig(), again.GetConfig())
}

func TestConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	t.Setenv("SSS_CONFIG", path)

	cm, err := NewConfigManager()
	require.NoError(t, err)
	assert.Equal(t, path, cm.Path())

	t.Setenv("SSS_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	p, err := getConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "sss", "config.json"), p)
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"defaults":{"threshold":2,"shares":3}}`), 0600))

	cm, err := NewConfigManagerAt(path)
	require.NoError(t, err)

	cfg := cm.GetConfig()
	assert.Equal(t, 2, cfg.Defaults.Threshold)
	assert.Equal(t, 3, cfg.Defaults.Shares)
	assert.Equal(t, 2048, cfg.Defaults.ModulusBits)
	assert.Equal(t, 8, cfg.Security.MinPasswordLength)
}

func TestBrokenConfigIsNotOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewConfigManagerAt(path)
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(*Config) {}, false},
		{"Threshold too low", func(c *Config) { c.Defaults.Threshold = 1 }, true},
		{"Shares below threshold", func(c *Config) { c.Defaults.Shares = 2 }, true},
		{"Unsupported modulus", func(c *Config) { c.Defaults.ModulusBits = 1000 }, true},
		{"Modulus 4096", func(c *Config) { c.Defaults.ModulusBits = 4096 }, false},
		{"Negative password length", func(c *Config) { c.Security.MinPasswordLength = -1 }, true},
		{"Bad permissions", func(c *Config) { c.Storage.FilePermissions = "rw-------" }, true},
		{"Permissions too wide", func(c *Config) { c.Storage.FilePermissions = "7777" }, true},
		{"Argon2", func(c *Config) { c.Storage.KDF = "argon2" }, false},
		{"Unknown KDF", func(c *Config) { c.Storage.KDF = "scrypt" }, true},
		{"Quiet", func(c *Config) { c.UI.Verbosity = "quiet" }, false},
		{"Empty verbosity", func(c *Config) { c.UI.Verbosity = "" }, false},
		{"Unknown verbosity", func(c *Config) { c.UI.Verbosity = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		verbosity string
		want      slog.Level
	}{
		{"quiet", slog.LevelError},
		{"normal", slog.LevelWarn},
		{"", slog.LevelWarn},
		{"verbose", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.verbosity, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.UI.Verbosity = tt.verbosity
			assert.Equal(t, tt.want, cfg.LogLevel())
		})
	}
}

func TestFileMode(t *testing.T) {
	cfg := DefaultConfig()
	mode, err := cfg.FileMode()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), mode)

	cfg.Storage.FilePermissions = "0640"
	mode, err = cfg.FileMode()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), mode)
}

func TestStorageOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.StorageOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	cfg.Storage.KDF = "nope"
	_, err = cfg.StorageOptions()
	assert.Error(t, err)
}

func TestBundlePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DefaultPath = "/var/lib/sss"

	p, err := cfg.BundlePath("session.json")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sss/session.json", p)

	p, err = cfg.BundlePath("./here.json")
	require.NoError(t, err)
	assert.Equal(t, "./here.json", p)

	p, err = cfg.BundlePath("/abs/file.json")
	require.NoError(t, err)
	assert.Equal(t, "/abs/file.json", p)
}

func TestApplyDefaults(t *testing.T) {
	cm := &ConfigManager{config: DefaultConfig()}

	params := &SplitParams{}
	cm.ApplyDefaults(params)
	assert.Equal(t, SplitParams{Threshold: 3, Shares: 5, ModulusBits: 2048}, *params)

	params = &SplitParams{Threshold: 2, Shares: 4, ModulusBits: 1024}
	cm.ApplyDefaults(params)
	assert.Equal(t, SplitParams{Threshold: 2, Shares: 4, ModulusBits: 1024}, *params)
}

func TestValidateParams(t *testing.T) {
	cm := &ConfigManager{config: DefaultConfig()}

	assert.NoError(t, cm.ValidateParams(&SplitParams{}))
	assert.NoError(t, cm.ValidateParams(&SplitParams{Password: "long enough"}))
	assert.Error(t, cm.ValidateParams(&SplitParams{Password: "short"}))

	cm.config.Security.SealFiles = true
	assert.Error(t, cm.ValidateParams(&SplitParams{}))
}
