package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func Test_parseFile_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"application_id":  "fromJSON",
		"server_url":      "https://json.example/parse",
		"use_master_key":  true,
		"request_timeout": "10s",
		"storage":         "sqlite",
	})
	require.NoError(t, err)
	path := writeTempFile(t, "cfg.json", b)

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseFile(cfg, []string{"-config", path}))

	assert.Equal(t, "fromJSON", cfg.ApplicationID)
	assert.Equal(t, "https://json.example/parse", cfg.ServerURL)
	assert.True(t, cfg.UseMasterKey)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Storage)
	// untouched keys keep their defaults
	assert.Equal(t, "http", cfg.Transport)
}

func Test_parseFile_YAML(t *testing.T) {
	path := writeTempFile(t, "cfg.yaml", []byte(`
application_id: fromYAML
master_key: mk
storage_timeout: 250ms
rate_limit: 2.5
rate_burst: 4
`))

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseFile(cfg, []string{"-c", path}))

	assert.Equal(t, "fromYAML", cfg.ApplicationID)
	assert.Equal(t, "mk", cfg.MasterKey)
	assert.Equal(t, 250*time.Millisecond, cfg.StorageTimeout)
	assert.InDelta(t, 2.5, cfg.RateLimit, 1e-9)
	assert.Equal(t, 4, cfg.RateBurst)
}

func Test_parseFile_NoFlag_NoChanges(t *testing.T) {
	cfg := &Config{ApplicationID: "keep"}
	require.NoError(t, parseFile(cfg, []string{"-s", "x"}))
	assert.Equal(t, "keep", cfg.ApplicationID)
}

func Test_parseFile_Errors(t *testing.T) {
	bad := writeTempFile(t, "bad.json", []byte(`{ this is not valid json`))

	cfg := &Config{}
	require.Error(t, parseFile(cfg, []string{"-c", bad}))
	require.Error(t, parseFile(cfg, []string{"-c", filepath.Join(t.TempDir(), "missing.json")}))
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeTempFile(t, "cfg.json", []byte(`{"application_id":"file","storage":"redis"}`))

	cfg, _, err := LoadConfig([]string{"-c", path, "-app", "flag"})
	require.NoError(t, err)
	assert.Equal(t, "flag", cfg.ApplicationID)
	assert.Equal(t, "redis", cfg.Storage)
}
