// Package config loads bizobj settings from an optional YAML file and
// BIZOBJ_* environment variables. Command line flags are applied last by the
// CLI.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/bizobj/internal/crypt"
	"github.com/tordrt/bizobj/internal/db"
)

type Config struct {
	DatabaseURL   string `yaml:"database_url"`
	EncryptionKey string `yaml:"encryption_key"` // hex or base64, 32 bytes
	HashCost      int    `yaml:"hash_cost"`
	HTTPAddr      string `yaml:"http_addr"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"` // "json" | "console"
}

func def() Config {
	return Config{
		HTTPAddr:  ":8080",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

func loadYAML(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// Load reads the YAML file at path, if it exists, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := def()

	if path != "" {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			if err := loadYAML(path, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	cfg.DatabaseURL = getenv("BIZOBJ_DATABASE_URL", cfg.DatabaseURL)
	cfg.EncryptionKey = getenv("BIZOBJ_ENCRYPTION_KEY", cfg.EncryptionKey)
	cfg.HTTPAddr = getenv("BIZOBJ_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getenv("BIZOBJ_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("BIZOBJ_LOG_FORMAT", cfg.LogFormat)

	return cfg, nil
}

// Validate checks the settings needed to open the database. Commands that
// write encrypted columns also call RequireKey.
func (c Config) Validate() error {
	if _, _, err := db.ParseURL(c.DatabaseURL); err != nil {
		return err
	}
	if c.HashCost < 0 {
		return fmt.Errorf("hash_cost must not be negative")
	}
	return nil
}

// RequireKey decodes the encryption key
func (c Config) RequireKey() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, fmt.Errorf("encryption key is required (set BIZOBJ_ENCRYPTION_KEY or encryption_key)")
	}
	return crypt.ParseKey(c.EncryptionKey)
}
