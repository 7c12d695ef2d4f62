package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Log      LogConfig
	Pipeline PipelineConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// PipelineConfig locates the batch inputs and outputs.
type PipelineConfig struct {
	PolicyPath      string
	SnapshotFeed    string
	TransactionFeed string
	OffsetsPath     string
	OutputDir       string
	Schedule        string
	RunOnStart      bool
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5002"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/household_ledger.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Pipeline: PipelineConfig{
			PolicyPath:      getEnv("POLICY_PATH", "./data/policy.yaml"),
			SnapshotFeed:    getEnv("SNAPSHOT_FEED", "./data/feed/snapshots.csv"),
			TransactionFeed: getEnv("TRANSACTION_FEED", "./data/feed/transactions.csv"),
			OffsetsPath:     getEnv("OFFSETS_PATH", ""),
			OutputDir:       getEnv("OUTPUT_DIR", "./data/output"),
			Schedule:        getEnv("RUN_SCHEDULE", "0 3 * * *"),
			RunOnStart:      getEnv("RUN_ON_START", "false") == "true",
		},
	}

	if config.Log.Format != "json" && config.Log.Format != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", config.Log.Format)
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
