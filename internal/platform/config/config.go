// Package config loads application configuration from environment variables.
// All variables use the STUDY_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Progress backend selectors.
const (
	ProgressBackendFile     = "file"
	ProgressBackendRedis    = "redis"
	ProgressBackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Cache          CacheConfig
	AI             AIConfig
	Progress       ProgressConfig
	Log            LogConfig
	CurriculumPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL                    string
	MaxConns               int
	MinConns               int
	ConnMaxLifetimeMinutes int
	ConnMaxIdleMinutes     int
}

// CacheConfig holds Redis connection settings.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for the AI providers.
type AIConfig struct {
	Google         GoogleConfig
	OpenAI         OpenAIConfig
	Model          string
	TimeoutSeconds int
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string
}

// ProgressConfig selects and configures the completion-set backend.
type ProgressConfig struct {
	Backend string // "file", "redis" or "postgres"
	Path    string // file backend only
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with STUDY_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("STUDY_SERVER_PORT", 8080),
			Host:           envStr("STUDY_SERVER_HOST", "0.0.0.0"),
			AllowedOrigins: strings.Split(envStr("STUDY_SERVER_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Database: DatabaseConfig{
			URL:                    envStr("STUDY_DATABASE_URL", ""),
			MaxConns:               envInt("STUDY_DATABASE_MAX_CONNS", 10),
			MinConns:               envInt("STUDY_DATABASE_MIN_CONNS", 2),
			ConnMaxLifetimeMinutes: envInt("STUDY_DATABASE_CONN_MAX_LIFETIME_MINUTES", 60),
			ConnMaxIdleMinutes:     envInt("STUDY_DATABASE_CONN_MAX_IDLE_MINUTES", 10),
		},
		Cache: CacheConfig{
			URL: envStr("STUDY_CACHE_URL", "redis://localhost:6379"),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envStr("STUDY_AI_GOOGLE_API_KEY", ""),
			},
			OpenAI: OpenAIConfig{
				APIKey: envStr("STUDY_AI_OPENAI_API_KEY", ""),
			},
			Model:          envStr("STUDY_AI_MODEL", ""),
			TimeoutSeconds: envInt("STUDY_AI_TIMEOUT_SECONDS", 30),
		},
		Progress: ProgressConfig{
			Backend: envStr("STUDY_PROGRESS_BACKEND", ProgressBackendFile),
			Path:    envStr("STUDY_PROGRESS_PATH", "./study_progress.json"),
		},
		Log: LogConfig{
			Level:  envStr("STUDY_LOG_LEVEL", "info"),
			Format: envStr("STUDY_LOG_FORMAT", "json"),
		},
		CurriculumPath: envStr("STUDY_CURRICULUM_PATH", "./data/curriculum"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
// A missing AI key is deliberately not an error: the app degrades to an
// "AI disabled" state instead of refusing to start.
func (c *Config) Validate() error {
	switch c.Progress.Backend {
	case ProgressBackendFile:
		if c.Progress.Path == "" {
			return fmt.Errorf("STUDY_PROGRESS_PATH is required for the file backend")
		}
	case ProgressBackendRedis:
		if c.Cache.URL == "" {
			return fmt.Errorf("STUDY_CACHE_URL is required for the redis backend")
		}
	case ProgressBackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("STUDY_DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("STUDY_PROGRESS_BACKEND must be 'file', 'redis' or 'postgres', got %q", c.Progress.Backend)
	}

	if c.CurriculumPath == "" {
		return fmt.Errorf("STUDY_CURRICULUM_PATH is required")
	}
	if c.AI.TimeoutSeconds <= 0 {
		return fmt.Errorf("STUDY_AI_TIMEOUT_SECONDS must be positive, got %d", c.AI.TimeoutSeconds)
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != "" || c.AI.OpenAI.APIKey != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
