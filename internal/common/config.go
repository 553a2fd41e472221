package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Slack    SlackConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Retry    RetryConfig
	Pipeline PipelineConfig
	Worker   WorkerConfig
	LogLevel slog.Level
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// SlackConfig holds the bot token used to fetch private attachment URLs.
type SlackConfig struct {
	BotToken string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Enabled        bool
	Tesseract      string
	TesseractLang  string
	TessdataDir    string
	PSM            int
	HeicConverter  string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// LLMConfig holds generative-text backend configuration
type LLMConfig struct {
	BaseURL string
	Path    string
	Model   string
	Timeout time.Duration
}

// RetryConfig is the backoff policy shared by image download and the LLM call.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// PipelineConfig holds submission validation settings
type PipelineConfig struct {
	Tolerance float64
}

// WorkerConfig sizes the submission worker pool
type WorkerConfig struct {
	Workers           int
	QueueSize         int
	SubmissionTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Slack: SlackConfig{
			BotToken: getEnv("SLACK_BOT_TOKEN", ""),
		},
		OCR: OCRConfig{
			Enabled:        getEnvAsBool("OCR_ENABLED", true),
			Tesseract:      getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:  getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:    getEnv("TESSDATA_PREFIX", ""),
			PSM:            getEnvAsInt("TESSERACT_PSM", 6),
			HeicConverter:  getEnv("HEIC_CONVERTER", "magick"),
			ConnectTimeout: getEnvAsDuration("DOWNLOAD_CONNECT_TIMEOUT", 3*time.Second),
			ReadTimeout:    getEnvAsDuration("DOWNLOAD_READ_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			BaseURL: getEnv("OLLAMA_HOST", "http://ollama:11434"),
			Path:    getEnv("OLLAMA_PATH", "/api/generate"),
			Model:   getEnv("OLLAMA_MODEL", "llama2"),
			Timeout: getEnvAsDuration("OLLAMA_TIMEOUT", 13*time.Second),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvAsDuration("RETRY_BASE_DELAY", 4*time.Second),
			MaxDelay:    getEnvAsDuration("RETRY_MAX_DELAY", 10*time.Second),
		},
		Pipeline: PipelineConfig{
			Tolerance: getEnvAsFloat64("OCR_VALIDATION_TOLERANCE", 0.10),
		},
		Worker: WorkerConfig{
			Workers:           getEnvAsInt("WORKERS", 4),
			QueueSize:         getEnvAsInt("QUEUE_SIZE", 256),
			SubmissionTimeout: getEnvAsDuration("SUBMISSION_TIMEOUT", 30*time.Second),
		},
		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(value))); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.LLM.BaseURL == "" || c.LLM.Model == "" {
		return NewAppError("CONFIG_ERROR", "OLLAMA_HOST and OLLAMA_MODEL are required", ErrInvalidInput)
	}
	if c.Pipeline.Tolerance < 0 || c.Pipeline.Tolerance >= 1 {
		return NewAppError("CONFIG_ERROR", "OCR_VALIDATION_TOLERANCE must be in [0,1)", ErrInvalidInput)
	}
	if c.Retry.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "RETRY_MAX_ATTEMPTS must be >= 1", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
