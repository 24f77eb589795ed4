package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sunbeam-data/ocr-pipeline/internal/extract"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	AWS      AWSConfig
	Queue    QueueConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	DSN              string
	Driver           string // "postgres" (default) or "sqlite" for local runs
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds the HTTP service configuration.
type ServerConfig struct {
	Addr           string
	ProcessTimeout time.Duration
}

// AWSConfig holds the cloud capability endpoints.
type AWSConfig struct {
	Region       string
	InputBucket  string // bucket receiving scanned documents
	OutputBucket string // bucket for processed JSON artifacts
}

// QueueConfig holds the SQS consumer configuration.
type QueueConfig struct {
	QueueURL       string
	DLQURL         string
	WaitTime       time.Duration
	MaxRetries     int
	ProcessFileURL string // ocrd endpoint the worker calls per message
}

// PipelineConfig selects the extraction behavior.
type PipelineConfig struct {
	Strategy       string // forms_tables | expense
	HeuristicsPath string // optional YAML overriding the built-in keyword lists
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			Driver:           getEnv("DB_DRIVER", "postgres"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":5001"),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 2*time.Minute),
		},
		AWS: AWSConfig{
			Region:       getEnv("AWS_REGION", ""),
			InputBucket:  getEnv("S3_INPUT_BUCKET", ""),
			OutputBucket: getEnv("S3_OUTPUT_BUCKET", ""),
		},
		Queue: QueueConfig{
			QueueURL:       getEnv("SQS_QUEUE_URL", ""),
			DLQURL:         getEnv("SQS_DLQ_URL", ""),
			WaitTime:       getEnvAsDuration("SQS_WAIT_TIME", 20*time.Second),
			MaxRetries:     getEnvAsInt("SQS_MAX_RETRIES", 2),
			ProcessFileURL: getEnv("PROCESS_FILE_URL", "http://localhost:5001/ocr/process-file"),
		},
		Pipeline: PipelineConfig{
			Strategy:       getEnv("EXTRACTION_STRATEGY", "forms_tables"),
			HeuristicsPath: getEnv("HEURISTICS_FILE", ""),
		},
	}
}

// LoadHeuristics returns the built-in heuristics, overlaid with the YAML
// file named by HEURISTICS_FILE when set.
func (c *Config) LoadHeuristics() (extract.Heuristics, error) {
	defaults := extract.DefaultHeuristics()
	if c.Pipeline.HeuristicsPath == "" {
		return defaults, nil
	}
	raw, err := os.ReadFile(c.Pipeline.HeuristicsPath)
	if err != nil {
		return defaults, fmt.Errorf("read heuristics file: %w", err)
	}
	var overrides extract.Heuristics
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return defaults, fmt.Errorf("parse heuristics file: %w", err)
	}
	return defaults.Merge(overrides), nil
}

// Validate checks the loaded configuration for a server process.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.AWS.Region == "" {
		return NewAppError("CONFIG_ERROR", "AWS_REGION is required", ErrInvalidInput)
	}
	if c.AWS.InputBucket == "" {
		return NewAppError("CONFIG_ERROR", "S3_INPUT_BUCKET is required", ErrInvalidInput)
	}
	if _, err := extract.StrategyByName(c.Pipeline.Strategy); err != nil {
		return NewAppError("CONFIG_ERROR", err.Error(), ErrInvalidInput)
	}
	return nil
}

// ValidateWorker checks the subset a queue worker needs.
func (c *Config) ValidateWorker() error {
	if c.Queue.QueueURL == "" {
		return NewAppError("CONFIG_ERROR", "SQS_QUEUE_URL is required", ErrInvalidInput)
	}
	if c.AWS.Region == "" {
		return NewAppError("CONFIG_ERROR", "AWS_REGION is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
