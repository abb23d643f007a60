// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory and working directory at a temp dir
// and clears every variable ApplyEnvOverrides reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RAGCHAT_HOME", dir)
	for _, k := range []string{"RAGCHAT_API_URL", "VITE_API_URL", "RAGCHAT_STORAGE", "RAGCHAT_LOG_LEVEL", "RAGCHAT_THEME"} {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.True(t, cfg.UI.Markdown)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
base_url = "http://rag.internal:8080/"

[storage]
backend = "sqlite"

[ui]
markdown = false
`), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://rag.internal:8080", cfg.API.BaseURL, "trailing slash trimmed")
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, DefaultTimeoutSecs, cfg.API.TimeoutSecs, "unset keys keep defaults")

	t.Setenv("RAGCHAT_API_URL", "https://rag.example.com")
	cfg, err = LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://rag.example.com", cfg.API.BaseURL)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("RAGCHAT_API_URL")
	os.Unsetenv("VITE_API_URL")
	t.Cleanup(func() {
		os.Unsetenv("VITE_API_URL")
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VITE_API_URL=http://10.0.0.5:5001\n"), 0600))

	cfg, err := LoadFrom(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:5001", cfg.API.BaseURL)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "ftp://host"
	cfg.Storage.Backend = "redis"
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 3)
	assert.Equal(t, "api.base_url", verrs[0].Field)
}

func TestLoad_InvalidFileFails(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbackend = \"redis\"\n"), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("api.base_url", "http://example.com"))
	require.NoError(t, cfg.Set("ui.markdown", "false"))
	require.NoError(t, cfg.Set("API.Timeout_Secs", "30"))

	v, err := cfg.Get("api.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", v)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, 30, cfg.API.TimeoutSecs)

	assert.Error(t, cfg.Set("ui.markdown", "maybe"))
	assert.Error(t, cfg.Set("api.nope", "x"))
	_, err = cfg.Get("api")
	assert.Error(t, err, "sections are not leaf keys")
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "api.base_url")
	assert.Contains(t, keys, "storage.backend")
	assert.Contains(t, keys, "log.file")
	assert.Equal(t, "api.base_url", keys[0])
}

func TestSaveTo_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.API.BaseURL = "http://saved:5001"
	require.NoError(t, SaveTo(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://saved:5001", loaded.API.BaseURL)
}

func TestReadFile_IgnoresEnvironment(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nbase_url = \"http://file:5001\"\n"), 0600))
	t.Setenv("RAGCHAT_API_URL", "http://env:5001")

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://file:5001", cfg.API.BaseURL)

	missing, err := ReadFile(filepath.Join(dir, "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, missing.API.BaseURL)
}
