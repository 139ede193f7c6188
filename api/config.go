package handler

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port string
	Host string

	// Pipedrive API configuration
	PipedriveAPIToken   string
	PipedriveBaseURL    string
	PipedrivePipelineID string
	PipedriveStageID    string
	PipedriveTimeout    time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	token := getEnv("PIPEDRIVE_API_TOKEN", "")
	if token == "" {
		// older deployments still export the key under this name
		token = getEnv("PIPEDRIVE_API_KEY", "")
	}

	return &Config{
		Port: getEnv("PORT", "8080"),
		Host: getEnv("HOST", "0.0.0.0"),

		PipedriveAPIToken:   token,
		PipedriveBaseURL:    strings.TrimRight(getEnv("PIPEDRIVE_BASE_URL", "https://api.pipedrive.com/v1"), "/"),
		PipedrivePipelineID: getEnv("PIPEDRIVE_PIPELINE_ID", ""),
		PipedriveStageID:    getEnv("PIPEDRIVE_STAGE_ID", ""),
		PipedriveTimeout:    time.Duration(getEnvAsInt("PIPEDRIVE_TIMEOUT_SECONDS", 30)) * time.Second,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a fallback default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.LogLevel == "production" || os.Getenv("GIN_MODE") == "release"
}

// HasPipedriveConfig returns true if the token, pipeline and stage are all set
func (c *Config) HasPipedriveConfig() bool {
	return c.PipedriveAPIToken != "" && c.PipedrivePipelineID != "" && c.PipedriveStageID != ""
}

// PipelineID returns the configured pipeline as an integer, or nil when it
// does not parse. A nil id is sent to Pipedrive as JSON null.
func (c *Config) PipelineID() *int {
	return parseID(c.PipedrivePipelineID)
}

// StageID returns the configured stage as an integer, or nil when it does not parse.
func (c *Config) StageID() *int {
	return parseID(c.PipedriveStageID)
}

// parseID reads the leading decimal digits of s, so "12abc" yields 12 and
// "" or "abc" yield nil.
func parseID(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &n
}
