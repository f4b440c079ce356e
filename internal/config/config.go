/**
 * Configuration for the Extractext agent
 *
 * Loads configuration from environment variables matching .env.extractext
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds agent configuration
type Config struct {
	// Redis configuration (cross-context transport + settings store)
	RedisURL string

	// PostgreSQL configuration (statistics store); empty disables persistence
	DatabaseURL string

	// HTTP health/stats endpoint
	HTTPAddr string

	// Protocol configuration
	AgentChannel   string
	PageChannel    string
	RequestTimeout int // milliseconds

	// OCR engine configuration
	TesseractPath   string
	EngineLanguages string // "+"-separated tesseract language codes

	// Preprocessing target edge in pixels (small images are upscaled toward it)
	EnhanceTargetEdge int

	// Temporary directory for image payload scratch files
	TempDir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		HTTPAddr:          getEnvOrDefault("HTTP_ADDR", ":8097"),
		AgentChannel:      getEnvOrDefault("AGENT_CHANNEL", "extractext:agent"),
		PageChannel:       getEnvOrDefault("PAGE_CHANNEL", "extractext:page"),
		RequestTimeout:    getEnvAsIntOrDefault("REQUEST_TIMEOUT_MS", 30000),
		TesseractPath:     getEnvOrDefault("TESSERACT_PATH", "/usr/bin/tesseract"),
		EngineLanguages:   getEnvOrDefault("ENGINE_LANGUAGES", "eng"),
		EnhanceTargetEdge: getEnvAsIntOrDefault("ENHANCE_TARGET_EDGE", 800),
		TempDir:           getEnvOrDefault("TEMP_DIR", "/tmp/extractext"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.AgentChannel == "" || c.PageChannel == "" {
		return fmt.Errorf("AGENT_CHANNEL and PAGE_CHANNEL are required")
	}

	if c.AgentChannel == c.PageChannel {
		return fmt.Errorf("AGENT_CHANNEL and PAGE_CHANNEL must differ, both are %q", c.AgentChannel)
	}

	if c.RequestTimeout < 100 || c.RequestTimeout > 600000 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be between 100 and 600000, got %d", c.RequestTimeout)
	}

	if c.EnhanceTargetEdge < 100 || c.EnhanceTargetEdge > 4096 {
		return fmt.Errorf("ENHANCE_TARGET_EDGE must be between 100 and 4096, got %d", c.EnhanceTargetEdge)
	}

	for _, lang := range strings.Split(c.EngineLanguages, "+") {
		if lang == "" {
			return fmt.Errorf("ENGINE_LANGUAGES contains an empty language code: %q", c.EngineLanguages)
		}
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
