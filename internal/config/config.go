// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/ragchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete ragchat configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig describes how to reach the RAG backend.
type APIConfig struct {
	// BaseURL is the single origin every endpoint is resolved against.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds one HTTP request. Queries can take a while on the
	// backend, so the default is generous.
	TimeoutSecs int `toml:"timeout_secs"`
}

// StorageConfig selects where client state (the session record) lives.
type StorageConfig struct {
	// Backend is "file" (one JSON file per key) or "sqlite" (state.db).
	Backend string `toml:"backend"`
	// Dir overrides the state directory. Empty means the config directory.
	Dir string `toml:"dir"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	Theme          string `toml:"theme"`
	Markdown       bool   `toml:"markdown"`
	WordWrap       int    `toml:"word_wrap"`
	ShowTimestamps bool   `toml:"show_timestamps"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level string `toml:"level"`
	// File is the log path. Empty means ragchat.log in the config directory.
	File string `toml:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultBaseURL is the backend's local development address.
	DefaultBaseURL     = "http://localhost:5001"
	DefaultTimeoutSecs = 120
	DefaultWordWrap    = 100

	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var (
	validThemes    = []string{"dark", "light", "auto"}
	validBackends  = []string{BackendFile, BackendSQLite}
	validLogLevels = []string{"trace", "debug", "info", "warn", "error", "disabled"}
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     DefaultBaseURL,
			TimeoutSecs: DefaultTimeoutSecs,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		UI: UIConfig{
			Theme:          "dark",
			Markdown:       true,
			WordWrap:       DefaultWordWrap,
			ShowTimestamps: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the ragchat home directory. RAGCHAT_HOME overrides the
// default of ~/.ragchat.
func Dir() (string, error) {
	if home := os.Getenv("RAGCHAT_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragchat"), nil
}

// Path returns the config.toml location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StateDir is where storage backends keep their files.
func (c *Config) StateDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	return Dir()
}

// LogPath is where the file logger writes.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ragchat.log"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the default config file, .env files and the environment.
// A missing config file is not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		// SECURITY: the file may hold a non-default backend address; keep it private
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	loadDotEnv(filepath.Dir(path))
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ReadFile decodes only the file at path over the defaults, without .env
// or environment overrides and without validating. "config set" edits
// this form so overrides never get written back.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

// loadDotEnv populates unset environment variables from .env files.
// godotenv never overrides variables already present, which gives the
// process environment precedence over the files.
func loadDotEnv(configDir string) {
	for _, p := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring %s: %v\n", p, err)
		}
	}
}

// ApplyEnvOverrides applies RAGCHAT_* variables on top of the file values.
func (c *Config) ApplyEnvOverrides() {
	// VITE_API_URL is honored so an existing web-client .env keeps working.
	if u := os.Getenv("VITE_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if u := os.Getenv("RAGCHAT_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if backend := os.Getenv("RAGCHAT_STORAGE"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if level := os.Getenv("RAGCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if theme := os.Getenv("RAGCHAT_THEME"); theme != "" {
		c.UI.Theme = strings.ToLower(theme)
	}
}

// SetDefaults fills zero values a partial config file leaves behind.
func (c *Config) SetDefaults() {
	d := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes cfg as TOML with owner-only permissions.
func SaveTo(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ragchat configuration file\n")
	buf.WriteString("# Generated by ragchat - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// SECURITY: 0600 = owner read/write only
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every problem found by Validate.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field and returns ValidateErrors, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" {
		errs = append(errs, ValidationError{"api.base_url", fmt.Sprintf("invalid URL %q", c.API.BaseURL)})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{"api.base_url", fmt.Sprintf("unsupported scheme %q (use http or https)", u.Scheme)})
	}
	if c.API.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"api.timeout_secs", "must not be negative"})
	}
	if !contains(validBackends, c.Storage.Backend) {
		errs = append(errs, ValidationError{"storage.backend", fmt.Sprintf("must be one of %s", strings.Join(validBackends, ", "))})
	}
	if !contains(validThemes, c.UI.Theme) {
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("must be one of %s", strings.Join(validThemes, ", "))})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{"ui.word_wrap", "must not be negative"})
	}
	if !contains(validLogLevels, c.Log.Level) {
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("must be one of %s", strings.Join(validLogLevels, ", "))})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
