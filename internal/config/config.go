// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Engine settings.
	QueryTimeout       time.Duration // Per-query timeout; clamped to 30s.
	MaxInlineFileBytes int64         // Largest source file accepted on the in-memory load path.

	// AI intent extraction settings.
	AIMode       string // "on" or "off"; master switch for intent extraction.
	OpenAIAPIKey string // Never logged, in any form.
	AIBaseURL    string
	AIModel      string
	AITimeout    time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	DataDir             string // Registry and report documents live here.
	MaxRequestBodyBytes int64  // Maximum request body size in bytes.
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("NALYZE_PORT", 8090),
		ReadTimeout:         envDuration("NALYZE_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("NALYZE_WRITE_TIMEOUT", 60*time.Second),
		QueryTimeout:        envDuration("NALYZE_QUERY_TIMEOUT", 10*time.Second),
		MaxInlineFileBytes:  int64(envInt("NALYZE_MAX_INLINE_FILE_BYTES", 512*1024*1024)), // 512 MB default
		AIMode:              envStr("AI_MODE", "off"),
		OpenAIAPIKey:        envStr("OPENAI_API_KEY", ""),
		AIBaseURL:           envStr("NALYZE_AI_BASE_URL", "https://api.openai.com/v1"),
		AIModel:             envStr("NALYZE_AI_MODEL", "gpt-4o-mini"),
		AITimeout:           envDuration("NALYZE_AI_TIMEOUT", 30*time.Second),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "nalyze"),
		LogLevel:            envStr("NALYZE_LOG_LEVEL", "info"),
		DataDir:             envStr("NALYZE_DATA_DIR", defaultDataDir()),
		MaxRequestBodyBytes: int64(envInt("NALYZE_MAX_REQUEST_BODY_BYTES", 4*1024*1024)), // 4 MB default
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: NALYZE_PORT %d out of range", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: NALYZE_DATA_DIR is required")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("config: NALYZE_QUERY_TIMEOUT must be positive")
	}
	if c.MaxInlineFileBytes <= 0 {
		return fmt.Errorf("config: NALYZE_MAX_INLINE_FILE_BYTES must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: NALYZE_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.AIMode != "on" && c.AIMode != "off" {
		return fmt.Errorf("config: AI_MODE must be %q or %q, got %q", "on", "off", c.AIMode)
	}
	return nil
}

// AIEnabled reports whether AI intent extraction may be used at all.
func (c Config) AIEnabled() bool {
	return c.AIMode == "on"
}

// defaultDataDir resolves the platform-conventional application data
// directory, falling back to the working directory when none is available.
func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".nalyze"
	}
	return filepath.Join(base, "nalyze")
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
