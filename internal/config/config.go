// Package config loads CLI settings from the environment, after merging a
// .env file when one exists. Variables already set win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/leofalp/polprofile/internal/logging"
)

// Provider backends.
const (
	ProviderGemini = "gemini"
	ProviderGenAI  = "genai"
)

// ErrInvalid wraps every validation failure returned by Load and Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds everything the CLI reads from the environment.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string

	// Vertex backend, genai provider only.
	Vertex   bool
	Project  string
	Location string

	// Empty model names keep the catalog defaults.
	FastModel string
	ProModel  string

	RunTimeout        time.Duration
	CallTimeout       time.Duration
	MaxRetries        int
	MaxToolIterations int

	LogLevel    string
	LogFormat   string
	LogFile     string
	MetricsFile string
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Provider:          ProviderGemini,
		RunTimeout:        5 * time.Minute,
		CallTimeout:       2 * time.Minute,
		MaxRetries:        2,
		MaxToolIterations: 3,
		LogLevel:          "WARN",
	}
}

// Load merges the given .env files (".env" when none are named) into the
// process environment, ignoring missing files, then returns FromEnv.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment and validates it.
// Parse and validation problems are reported together.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	cfg.Provider = strings.ToLower(firstEnv("POLPROFILE_PROVIDER", cfg.Provider))
	cfg.APIKey = firstEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY"))
	cfg.BaseURL = os.Getenv("GEMINI_API_BASE_URL")
	cfg.Project = os.Getenv("GOOGLE_CLOUD_PROJECT")
	cfg.Location = os.Getenv("GOOGLE_CLOUD_LOCATION")
	cfg.FastModel = os.Getenv("POLPROFILE_FAST_MODEL")
	cfg.ProModel = os.Getenv("POLPROFILE_PRO_MODEL")
	cfg.LogLevel = firstEnv("POLPROFILE_LOG_LEVEL", firstEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = os.Getenv("POLPROFILE_LOG_FORMAT")
	cfg.LogFile = os.Getenv("POLPROFILE_LOG_FILE")
	cfg.MetricsFile = os.Getenv("POLPROFILE_METRICS_FILE")

	if v := os.Getenv("GOOGLE_GENAI_USE_VERTEXAI"); v != "" {
		vertex, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GOOGLE_GENAI_USE_VERTEXAI: %w", err))
		}
		cfg.Vertex = vertex
	}

	errs = append(errs,
		durationEnv("POLPROFILE_RUN_TIMEOUT", &cfg.RunTimeout),
		durationEnv("POLPROFILE_CALL_TIMEOUT", &cfg.CallTimeout),
		intEnv("POLPROFILE_MAX_RETRIES", &cfg.MaxRetries),
		intEnv("POLPROFILE_MAX_TOOL_ITERATIONS", &cfg.MaxToolIterations),
	)

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and that the selected provider has credentials.
func (c Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderGemini:
		if c.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY or GOOGLE_API_KEY is required"))
		}
	case ProviderGenAI:
		if c.Vertex && (c.Project == "" || c.Location == "") {
			errs = append(errs, errors.New("Vertex AI needs GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION"))
		}
		if !c.Vertex && c.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY or GOOGLE_API_KEY is required unless Vertex AI is enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("POLPROFILE_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderGenAI, c.Provider))
	}

	if c.RunTimeout <= 0 {
		errs = append(errs, fmt.Errorf("POLPROFILE_RUN_TIMEOUT must be positive, got %s", c.RunTimeout))
	}
	if c.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("POLPROFILE_CALL_TIMEOUT must not be negative, got %s", c.CallTimeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("POLPROFILE_MAX_RETRIES must not be negative, got %d", c.MaxRetries))
	}
	if c.MaxToolIterations < 1 {
		errs = append(errs, fmt.Errorf("POLPROFILE_MAX_TOOL_ITERATIONS must be at least 1, got %d", c.MaxToolIterations))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func firstEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = d
	return nil
}

func intEnv(key string, target *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = n
	return nil
}
