// Package config loads runtime settings from the environment (and a .env file
// loaded by the entry points).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Engine types accepted by OCR_ENGINE.
const (
	EngineCloud  = "cloud"
	EngineLocal  = "local"
	EngineOllama = "ollama"
)

// Config holds tool configuration
type Config struct {
	// Backend selection
	Engine        string
	LanguageHints []string

	// Google Cloud Vision
	CredentialsFile string
	CloudTimeout    time.Duration

	// Tesseract page segmentation mode
	LocalPSM int

	// Ollama vision model
	OllamaURL     string
	OllamaModel   string
	OllamaTimeout time.Duration

	// HTTP server
	ListenAddr     string
	CORSOrigins    []string
	MaxUploadBytes int64

	// Largest pixel count an image header may claim before decoding
	MaxImagePixels int64

	// Batch mode
	BatchWorkers int

	Debug bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Engine:          strings.ToLower(getEnvOrDefault("OCR_ENGINE", EngineCloud)),
		LanguageHints:   getEnvAsListOrDefault("LANGUAGE_HINTS", []string{"ja"}),
		CredentialsFile: getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", ""),
		CloudTimeout:    getEnvAsDurationOrDefault("CLOUD_TIMEOUT", 30*time.Second),
		LocalPSM:        getEnvAsIntOrDefault("LOCAL_PSM", 5), // single block of vertical text
		OllamaURL:       getEnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:     getEnvOrDefault("OLLAMA_MODEL", "llama3.2-vision"),
		OllamaTimeout:   getEnvAsDurationOrDefault("OLLAMA_TIMEOUT", 2*time.Minute),
		ListenAddr:      getEnvOrDefault("LISTEN_ADDR", ":8000"),
		CORSOrigins:     getEnvAsListOrDefault("CORS_ORIGINS", nil),
		MaxUploadBytes:  getEnvAsInt64OrDefault("MAX_UPLOAD_BYTES", 20<<20),
		MaxImagePixels:  getEnvAsInt64OrDefault("MAX_IMAGE_PIXELS", 50_000_000),
		BatchWorkers:    getEnvAsIntOrDefault("BATCH_WORKERS", 2),
		Debug:           getEnvAsBoolOrDefault("DEBUG", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineCloud, EngineLocal, EngineOllama:
	default:
		return fmt.Errorf("OCR_ENGINE must be one of %s, %s, %s; got %q", EngineCloud, EngineLocal, EngineOllama, c.Engine)
	}

	if len(c.LanguageHints) == 0 {
		return fmt.Errorf("LANGUAGE_HINTS must name at least one language")
	}

	if c.CloudTimeout <= 0 {
		return fmt.Errorf("CLOUD_TIMEOUT must be positive, got %v", c.CloudTimeout)
	}

	if c.OllamaTimeout <= 0 {
		return fmt.Errorf("OLLAMA_TIMEOUT must be positive, got %v", c.OllamaTimeout)
	}

	if c.LocalPSM < 0 || c.LocalPSM > 13 {
		return fmt.Errorf("LOCAL_PSM must be between 0 and 13, got %d", c.LocalPSM)
	}

	if c.MaxUploadBytes < 1024 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be at least 1KB, got %d", c.MaxUploadBytes)
	}

	if c.MaxImagePixels < 1 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels)
	}

	if c.BatchWorkers < 1 || c.BatchWorkers > 32 {
		return fmt.Errorf("BATCH_WORKERS must be between 1 and 32, got %d", c.BatchWorkers)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDurationOrDefault accepts Go durations ("45s") or bare seconds ("45").
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}

	return values
}
