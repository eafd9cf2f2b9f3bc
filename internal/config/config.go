package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Batch driver settings.
	SourceDir   string
	OutputFile  string
	ExcludeDirs []string
	Workers     int
	FileTimeout time.Duration

	// Optional sinks; empty values disable them.
	KafkaBrokers []string
	KafkaTopic   string
	SQLitePath   string

	MetricsTextfile string
	MaxUploadBytes  int64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fileTimeoutStr := sharedcfg.EnvOrDefault("FILE_TIMEOUT", "30s")
	fileTimeout, err := time.ParseDuration(fileTimeoutStr)
	if err != nil || fileTimeout < 0 {
		return nil, errors.New("invalid FILE_TIMEOUT")
	}

	workers, err := parseWorkers()
	if err != nil {
		return nil, err
	}

	maxUpload, err := strconv.ParseInt(sharedcfg.EnvOrDefault("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, errors.New("invalid MAX_UPLOAD_BYTES")
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		SourceDir:   os.Getenv("SOURCE_DIR"),
		OutputFile:  sharedcfg.EnvOrDefault("OUTPUT_FILE", "output.xlsx"),
		ExcludeDirs: splitList(sharedcfg.EnvOrDefault("EXCLUDE_DIRS", "__MACOSX")),
		Workers:     workers,
		FileTimeout: fileTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "occultation-observations"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),

		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		MaxUploadBytes:  maxUpload,
	}

	if cfg.OutputFile == "" {
		return nil, errors.New("OUTPUT_FILE is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether records are published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// SQLiteEnabled reports whether records are stored in SQLite.
func (c *Config) SQLiteEnabled() bool { return c.SQLitePath != "" }

func parseWorkers() (int, error) {
	s := sharedcfg.EnvOrDefault("WORKERS", "4")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 256 {
		return 0, fmt.Errorf("invalid WORKERS %q: must be between 1 and 256", s)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
