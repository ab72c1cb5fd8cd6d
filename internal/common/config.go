package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Engine    EngineConfig
	Workspace WorkspaceConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// EngineConfig holds the extraction engine invocation contract.
type EngineConfig struct {
	Python          string        // interpreter binary; if empty -> "python3"
	Script          string        // path to the engine entrypoint, required
	WorkDir         string        // working directory; if empty -> directory of Script
	Timeout         time.Duration // wall-clock bound on one invocation
	MaxCaptureBytes int64         // cap on captured stdout+stderr
}

// WorkspaceConfig holds per-job artifact settings.
type WorkspaceConfig struct {
	Dir string // directory where input/output artifacts are allocated
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Engine: EngineConfig{
			Python:          getEnv("ENGINE_PYTHON", "python3"),
			Script:          getEnv("ENGINE_SCRIPT", ""),
			WorkDir:         getEnv("ENGINE_WORKDIR", ""),
			Timeout:         getEnvAsDuration("ENGINE_TIMEOUT", 120*time.Second),
			MaxCaptureBytes: getEnvAsInt64("ENGINE_MAX_CAPTURE_BYTES", 10<<20),
		},
		Workspace: WorkspaceConfig{
			Dir: getEnv("WORKSPACE_DIR", "./tmp/uploads"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate fails fast when required values are absent. There are no fallback
// paths or embedded credentials: everything comes from explicit configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError(CodeConfigError, "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError(CodeConfigError, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Workspace.Dir == "" {
		return NewAppError(CodeConfigError, "WORKSPACE_DIR is required", ErrInvalidInput)
	}
	return c.Engine.Validate()
}

// Validate checks the engine contract on its own so engine-only tools can
// reuse it without requiring a database.
func (e EngineConfig) Validate() error {
	if e.Script == "" {
		return NewAppError(CodeConfigError, "ENGINE_SCRIPT is required", ErrInvalidInput)
	}
	if e.Timeout <= 0 {
		return NewAppError(CodeConfigError, "ENGINE_TIMEOUT must be positive", ErrInvalidInput)
	}
	return nil
}
