// Package config provides configuration management for the sss CLI tool
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Davincible/sss/pkg/crypto/field"
	"github.com/Davincible/sss/pkg/storage"
)

// Config represents the main configuration structure
type Config struct {
	Version  string          `json:"version"`
	Defaults DefaultSettings `json:"defaults"`
	Security SecurityConfig  `json:"security"`
	UI       UIConfig        `json:"ui"`
	Storage  StorageConfig   `json:"storage"`
}

// DefaultSettings contains default values for split operations
type DefaultSettings struct {
	Threshold   int `json:"threshold"`    // Default: 3
	Shares      int `json:"shares"`       // Default: 5
	ModulusBits int `json:"modulus_bits"` // Default: 2048
}

// SecurityConfig contains security-related settings
type SecurityConfig struct {
	MinPasswordLength int  `json:"min_password_length"` // Minimum bundle password length
	SealFiles         bool `json:"seal_files"`          // Always seal bundle files
}

// UIConfig contains user interface settings
type UIConfig struct {
	UseColor  bool   `json:"use_color"` // Enable colored output
	Verbosity string `json:"verbosity"` // quiet, normal, verbose
}

// StorageConfig contains storage-related settings
type StorageConfig struct {
	DefaultPath     string `json:"default_path"`     // Directory for bundle files
	FilePermissions string `json:"file_permissions"` // Octal file mode for bundles
	KDF             string `json:"kdf"`              // pbkdf2 or argon2 for sealed bundles
}

// SplitParams are the parameters of one split as given on the command line.
// Zero values are filled from the configuration.
type SplitParams struct {
	Threshold   int
	Shares      int
	ModulusBits int
	Password    string
}

// ConfigManager manages configuration loading and saving
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a configuration manager for the default path
func NewConfigManager() (*ConfigManager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewConfigManagerAt(configPath)
}

// NewConfigManagerAt loads the configuration at path, writing the defaults
// there first if the file does not exist yet.
func NewConfigManagerAt(configPath string) (*ConfigManager, error) {
	cm := &ConfigManager{configPath: configPath}

	err := cm.LoadConfig()
	switch {
	case errors.Is(err, os.ErrNotExist):
		cm.config = DefaultConfig()
		if err := cm.SaveConfig(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	case err != nil:
		return nil, err
	}

	if err := cm.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cm, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Defaults: DefaultSettings{
			Threshold:   3,
			Shares:      5,
			ModulusBits: int(field.Size2048),
		},
		Security: SecurityConfig{
			MinPasswordLength: 8,
			SealFiles:         false,
		},
		UI: UIConfig{
			UseColor:  true,
			Verbosity: "normal",
		},
		Storage: StorageConfig{
			DefaultPath:     "~/.sss/bundles",
			FilePermissions: "0600",
			KDF:             string(storage.KDFPBKDF2),
		},
	}
}

// Validate rejects defaults that could never produce a valid key
func (c *Config) Validate() error {
	d := c.Defaults
	if d.Threshold < 2 {
		return fmt.Errorf("defaults.threshold must be at least 2, got %d", d.Threshold)
	}
	if d.Shares < d.Threshold {
		return fmt.Errorf("defaults.shares (%d) must be at least defaults.threshold (%d)", d.Shares, d.Threshold)
	}
	if _, err := field.ParseModulusSize(d.ModulusBits); err != nil {
		return fmt.Errorf("defaults.modulus_bits: %w", err)
	}
	if c.Security.MinPasswordLength < 0 {
		return fmt.Errorf("security.min_password_length cannot be negative")
	}
	if _, err := c.FileMode(); err != nil {
		return err
	}
	if _, err := storage.ParseKDF(c.Storage.KDF); err != nil {
		return fmt.Errorf("storage.kdf: %w", err)
	}
	if _, err := parseVerbosity(c.UI.Verbosity); err != nil {
		return err
	}
	return nil
}

// LogLevel maps ui.verbosity onto a log level
func (c *Config) LogLevel() slog.Level {
	level, err := parseVerbosity(c.UI.Verbosity)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

func parseVerbosity(v string) (slog.Level, error) {
	switch v {
	case "quiet":
		return slog.LevelError, nil
	case "", "normal":
		return slog.LevelWarn, nil
	case "verbose":
		return slog.LevelDebug, nil
	}
	return 0, fmt.Errorf("ui.verbosity: must be quiet, normal or verbose, got %q", v)
}

// FileMode parses storage.file_permissions
func (c *Config) FileMode() (os.FileMode, error) {
	if c.Storage.FilePermissions == "" {
		return 0600, nil
	}
	mode, err := strconv.ParseUint(c.Storage.FilePermissions, 8, 32)
	if err != nil || mode > 0777 {
		return 0, fmt.Errorf("storage.file_permissions: invalid mode %q", c.Storage.FilePermissions)
	}
	return os.FileMode(mode), nil
}

// StorageOptions returns the storage options selected by the configuration
func (c *Config) StorageOptions() ([]storage.Option, error) {
	kdf, err := storage.ParseKDF(c.Storage.KDF)
	if err != nil {
		return nil, err
	}
	return []storage.Option{storage.WithKDF(kdf)}, nil
}

// BundlePath resolves a bundle file name against storage.default_path
func (c *Config) BundlePath(name string) (string, error) {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name, nil
	}

	dir := c.Storage.DefaultPath
	if len(dir) > 1 && dir[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Join(dir, name), nil
}

// LoadConfig loads the configuration from disk
func (cm *ConfigManager) LoadConfig() error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	cm.config = config
	return nil
}

// SaveConfig saves the configuration to disk
func (cm *ConfigManager) SaveConfig() error {
	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// SetConfig updates the configuration
func (cm *ConfigManager) SetConfig(config *Config) {
	cm.config = config
}

// Path returns the configuration file path
func (cm *ConfigManager) Path() string {
	return cm.configPath
}

// getConfigPath returns the configuration file path
func getConfigPath() (string, error) {
	if customPath := os.Getenv("SSS_CONFIG"); customPath != "" {
		return customPath, nil
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sss", "config.json"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "sss", "config.json"), nil
}

// ApplyDefaults fills unset split parameters from the configuration
func (cm *ConfigManager) ApplyDefaults(params *SplitParams) {
	if params.Threshold == 0 {
		params.Threshold = cm.config.Defaults.Threshold
	}
	if params.Shares == 0 {
		params.Shares = cm.config.Defaults.Shares
	}
	if params.ModulusBits == 0 {
		params.ModulusBits = cm.config.Defaults.ModulusBits
	}
}

// ValidateParams checks split parameters against the security policy
func (cm *ConfigManager) ValidateParams(params *SplitParams) error {
	if cm.config.Security.SealFiles && params.Password == "" {
		return fmt.Errorf("a bundle password is required by security policy")
	}

	if params.Password != "" && len(params.Password) < cm.config.Security.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters",
			cm.config.Security.MinPasswordLength)
	}

	return nil
}
