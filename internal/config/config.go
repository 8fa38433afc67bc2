// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages salus-tui configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/salus-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the root configuration structure.
//
// Configuration is loaded from (in order of precedence, lowest first):
//  1. Built-in defaults
//  2. ~/.salus/config.toml
//  3. SALUS_* environment variables
type Config struct {
	// Version of the config schema.
	Version string `toml:"version" json:"version"`

	// Service holds the chat service connection settings.
	Service ServiceConfig `toml:"service" json:"service"`

	// UI holds terminal interface settings.
	UI UIConfig `toml:"ui" json:"ui"`

	// Voice holds speech-input settings.
	Voice VoiceConfig `toml:"voice" json:"voice"`

	// Storage holds conversation persistence settings.
	Storage StorageConfig `toml:"storage" json:"storage"`
}

// ServiceConfig configures the connection to the assistant service.
type ServiceConfig struct {
	// BaseURL is the root URL of the assistant API.
	BaseURL string `toml:"base_url" json:"base_url"`

	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light", or "auto".
	Theme string `toml:"theme" json:"theme"`

	// Markdown enables rendered markdown in assistant replies.
	Markdown bool `toml:"markdown" json:"markdown"`

	// TypingIntervalMs is the reveal cadence for fresh replies, in
	// milliseconds per chunk.
	TypingIntervalMs int `toml:"typing_interval_ms" json:"typing_interval_ms"`
}

// VoiceConfig configures speech input.
type VoiceConfig struct {
	// Enabled turns the microphone toggle on where a backend exists.
	Enabled bool `toml:"enabled" json:"enabled"`
}

// StorageConfig configures conversation persistence.
type StorageConfig struct {
	// AutoSave enables periodic background saves of the active
	// conversation.
	AutoSave bool `toml:"auto_save" json:"auto_save"`

	// AutoSaveIntervalSecs is the autosave cadence in seconds.
	AutoSaveIntervalSecs int `toml:"auto_save_interval_secs" json:"auto_save_interval_secs"`

	// DatabasePath overrides the conversation database location.
	// Empty means ~/.salus/conversations.db.
	DatabasePath string `toml:"database_path" json:"database_path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Service: ServiceConfig{
			BaseURL:     "http://localhost:8000",
			TimeoutSecs: 60,
		},
		UI: UIConfig{
			Theme:            "dark",
			Markdown:         true,
			TypingIntervalMs: 35,
		},
		Voice: VoiceConfig{
			Enabled: true,
		},
		Storage: StorageConfig{
			AutoSave:             true,
			AutoSaveIntervalSecs: 30,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the salus configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".salus"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DatabasePath returns the conversation database path, honoring the
// storage.database_path override.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conversations.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	if err := loadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Service
	if cfg.Service.BaseURL == "" {
		cfg.Service.BaseURL = defaults.Service.BaseURL
	}
	if cfg.Service.TimeoutSecs == 0 {
		cfg.Service.TimeoutSecs = defaults.Service.TimeoutSecs
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.TypingIntervalMs == 0 {
		cfg.UI.TypingIntervalMs = defaults.UI.TypingIntervalMs
	}

	// Storage
	if cfg.Storage.AutoSaveIntervalSecs == 0 {
		cfg.Storage.AutoSaveIntervalSecs = defaults.Storage.AutoSaveIntervalSecs
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# salus configuration file")
	fmt.Fprintln(&buf, "# Generated by salus - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0644, 0755); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Service
	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "service.base_url",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Service.BaseURL),
		})
	}
	if c.Service.TimeoutSecs < 1 || c.Service.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "service.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Service.TimeoutSecs),
		})
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be one of dark, light, auto, got %q", c.UI.Theme),
		})
	}
	if c.UI.TypingIntervalMs < 1 || c.UI.TypingIntervalMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "ui.typing_interval_ms",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.UI.TypingIntervalMs),
		})
	}

	// Storage
	if c.Storage.AutoSaveIntervalSecs < 5 || c.Storage.AutoSaveIntervalSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "storage.auto_save_interval_secs",
			Message: fmt.Sprintf("must be between 5 and 3600, got %d", c.Storage.AutoSaveIntervalSecs),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - SALUS_URL: overrides service.base_url
//   - SALUS_TIMEOUT: overrides service.timeout_secs
//   - SALUS_THEME: overrides ui.theme
//   - SALUS_MARKDOWN: "1"/"true" or "0"/"false" toggles ui.markdown
//   - SALUS_VOICE: "1"/"true" or "0"/"false" toggles voice.enabled
//   - SALUS_AUTOSAVE: "1"/"true" or "0"/"false" toggles storage.auto_save
//   - SALUS_DB: overrides storage.database_path
func (c *Config) ApplyEnvOverrides() {
	if baseURL := os.Getenv("SALUS_URL"); baseURL != "" {
		c.Service.BaseURL = baseURL
	}

	if timeout := os.Getenv("SALUS_TIMEOUT"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil {
			c.Service.TimeoutSecs = secs
		}
	}

	if theme := os.Getenv("SALUS_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if markdown := os.Getenv("SALUS_MARKDOWN"); markdown != "" {
		c.UI.Markdown = envBool(markdown)
	}

	if voice := os.Getenv("SALUS_VOICE"); voice != "" {
		c.Voice.Enabled = envBool(voice)
	}

	if autosave := os.Getenv("SALUS_AUTOSAVE"); autosave != "" {
		c.Storage.AutoSave = envBool(autosave)
	}

	if db := os.Getenv("SALUS_DB"); db != "" {
		c.Storage.DatabasePath = db
	}
}

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// =============================================================================
// COPY / DEBUG
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
