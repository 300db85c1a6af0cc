package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BIZOBJ_DATABASE_URL",
		"BIZOBJ_ENCRYPTION_KEY",
		"BIZOBJ_HTTP_ADDR",
		"BIZOBJ_LOG_LEVEL",
		"BIZOBJ_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bizobj.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: sqlite://quotes.db
http_addr: ":9000"
log_level: debug
hash_cost: 11
`), 0o600))

	t.Setenv("BIZOBJ_HTTP_ADDR", ":7000")
	t.Setenv("BIZOBJ_LOG_FORMAT", " console ")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://quotes.db", cfg.DatabaseURL)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 11, cfg.HashCost)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_url: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite", Config{DatabaseURL: "sqlite://x.db"}, false},
		{"postgres", Config{DatabaseURL: "postgres://u:p@localhost/db"}, false},
		{"missing url", Config{}, true},
		{"bad scheme", Config{DatabaseURL: "oracle://x"}, true},
		{"negative cost", Config{DatabaseURL: "sqlite://x.db", HashCost: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireKey(t *testing.T) {
	_, err := Config{}.RequireKey()
	assert.Error(t, err)

	key, err := Config{EncryptionKey: strings.Repeat("ab", 32)}.RequireKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
