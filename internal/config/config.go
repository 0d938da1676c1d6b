package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sheetprompt/internal/errors"

	"github.com/joho/godotenv"
)

const (
	EnvAPIKey          = "GEMINI_API_KEY"
	EnvModel           = "GEMINI_MODEL"
	EnvBaseURL         = "GEMINI_BASE_URL"
	EnvTemperature     = "GEMINI_TEMPERATURE"
	EnvMaxOutputTokens = "GEMINI_MAX_OUTPUT_TOKENS"
	EnvTimeout         = "GEMINI_TIMEOUT"
	EnvLogLevel        = "LOG_LEVEL"

	DefaultModel = "gemini-2.0-flash"
)

// Config represents the complete application configuration
type Config struct {
	Gemini   GeminiConfig
	LogLevel string
}

// GeminiConfig holds inference provider settings
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     *float64 // nil leaves the model default
	MaxOutputTokens int      // 0 leaves the model default
	Timeout         time.Duration
}

// LoadDotEnv loads a .env file if one exists at path. Variables already
// present in the environment are not overridden.
func LoadDotEnv(path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, errors.WithCode(errors.CodeConfigInvalid, err, fmt.Sprintf("failed to load %s", path))
	}
	return true, nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	gemini, err := loadGeminiConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load Gemini configuration")
	}

	return &Config{
		Gemini:   *gemini,
		LogLevel: getEnvOrDefault(EnvLogLevel, "INFO"),
	}, nil
}

func loadGeminiConfig() (*GeminiConfig, error) {
	cfg := &GeminiConfig{
		APIKey:  strings.TrimSpace(os.Getenv(EnvAPIKey)),
		Model:   getEnvOrDefault(EnvModel, DefaultModel),
		BaseURL: getEnvOrDefault(EnvBaseURL, ""),
	}

	if value := os.Getenv(EnvTemperature); value != "" {
		t, err := strconv.ParseFloat(value, 64)
		if err != nil || t < 0 {
			return nil, errors.ConfigInvalid(fmt.Sprintf("%s must be a non-negative number, got %q", EnvTemperature, value))
		}
		cfg.Temperature = &t
	}

	maxTokens, err := getEnvInt(EnvMaxOutputTokens, 0)
	if err != nil {
		return nil, err
	}
	cfg.MaxOutputTokens = maxTokens

	timeout, err := getEnvDuration(EnvTimeout, 0)
	if err != nil {
		return nil, err
	}
	cfg.Timeout = timeout

	return cfg, nil
}

// RequireCredentials fails when no API key has been configured
func (c *Config) RequireCredentials() error {
	if c.Gemini.APIKey == "" {
		return errors.Authentication(
			fmt.Sprintf("%s environment variable not set; set it to your Google Generative AI API key", EnvAPIKey), nil)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < 0 {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a non-negative integer, got %q", key, value))
	}
	return intValue, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil || duration < 0 {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a duration such as 30s, got %q", key, value))
	}
	return duration, nil
}
