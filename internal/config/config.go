package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Kafka    KafkaConfig
	Ingest   IngestConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// KafkaConfig contains message bus settings.
type KafkaConfig struct {
	Brokers        []string // bootstrap broker addresses
	TelemetryTopic string   // inbound telemetry topic (partition key = vehicleId)
	CommandTopic   string   // outbound execution command topic
	DLQTopic       string   // terminal sink for unprocessable telemetry
	GroupID        string   // telemetry consumer group
}

// IngestConfig contains the retry coordinator knobs.
type IngestConfig struct {
	MaxRetries     int           // attempts before dead-lettering
	BaseBackoff    time.Duration // first retry delay; doubles per attempt
	ProcessTimeout time.Duration // per-message processing bound
	Workers        int           // concurrent partition workers
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	maxRetries, err := getEnvInt("INGEST_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	baseBackoff, err := getEnvDuration("INGEST_BASE_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	processTimeout, err := getEnvDuration("INGEST_PROCESS_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("INGEST_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "missions.db"),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TelemetryTopic: getEnv("KAFKA_TELEMETRY_TOPIC", "vehicle-telemetry"),
			CommandTopic:   getEnv("KAFKA_COMMAND_TOPIC", "mission-commands"),
			DLQTopic:       getEnv("KAFKA_DLQ_TOPIC", "vehicle-telemetry-dlq"),
			GroupID:        getEnv("KAFKA_GROUP_ID", "mission-control"),
		},
		Ingest: IngestConfig{
			MaxRetries:     maxRetries,
			BaseBackoff:    baseBackoff,
			ProcessTimeout: processTimeout,
			Workers:        workers,
		},
	}

	// Validate critical settings
	if cfg.Ingest.MaxRetries < 1 {
		return nil, fmt.Errorf("INGEST_MAX_RETRIES must be at least 1, got %d", cfg.Ingest.MaxRetries)
	}
	if cfg.Ingest.BaseBackoff <= 0 {
		return nil, fmt.Errorf("INGEST_BASE_BACKOFF must be positive, got %s", cfg.Ingest.BaseBackoff)
	}
	if cfg.Ingest.ProcessTimeout <= 0 {
		return nil, fmt.Errorf("INGEST_PROCESS_TIMEOUT must be positive, got %s", cfg.Ingest.ProcessTimeout)
	}
	if cfg.Ingest.Workers < 1 {
		return nil, fmt.Errorf("INGEST_WORKERS must be at least 1, got %d", cfg.Ingest.Workers)
	}
	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// getEnvDuration retrieves an environment variable as a Go duration string
// (e.g. "500ms", "5s") with a default fallback.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config for boot logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, Brokers: %v, Telemetry: %s, Commands: %s, DLQ: %s, Group: %s, Retries: %d, Backoff: %s, Timeout: %s, Workers: %d}",
		c.Database.Path, c.Kafka.Brokers, c.Kafka.TelemetryTopic, c.Kafka.CommandTopic, c.Kafka.DLQTopic,
		c.Kafka.GroupID, c.Ingest.MaxRetries, c.Ingest.BaseBackoff, c.Ingest.ProcessTimeout, c.Ingest.Workers)
}
