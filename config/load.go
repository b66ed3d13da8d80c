package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Load reads the configuration from the environment, layering a local
// .env file underneath when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:            getEnv("APP_NAME", "sorrel"),
		Port:               getEnvInt("PORT", 3004),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		PrettyLogs:         getEnvBool("PRETTY_LOGS", false),
		TracingEnabled:     getEnvBool("TRACING_ENABLED", false),
		TracingEndpoint:    getEnv("TRACING_ENDPOINT", "localhost:4317"),
		TracingProtocol:    getEnv("TRACING_PROTOCOL", "grpc"),
		TracingInsecure:    getEnvBool("TRACING_INSECURE", true),
		StartupMaxAttempts: getEnvInt("STARTUP_MAX_ATTEMPTS", 5),

		DatabaseHost:                  getEnv("DB_HOST", "localhost"),
		DatabasePort:                  getEnv("DB_PORT", "5432"),
		DatabaseUserName:              getEnv("DB_USER_NAME", "postgres"),
		DatabasePassword:              getEnv("DB_PASSWORD", ""),
		DatabaseName:                  getEnv("DB_NAME", "dvf"),
		DatabaseSSLMode:               getEnv("DB_SSL_MODE", "disable"),
		DatabaseMaxOpenConns:          getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DatabaseMaxIdleConns:          getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DatabaseConnMaxLifetime:       getEnvDuration("DB_CONN_MAX_LIFETIME", 10*time.Second),
		DatabaseMigrationFolderPath:   getEnv("DB_MIGRATION_FOLDER_PATH", "db/pg"),
		DatabaseMigrationVersion:      getEnvInt("DB_MIGRATION_VERSION", 0),
		DatabaseMigrationForce:        getEnvInt("DB_MIGRATION_FORCE", 0),
		DatabaseMigrationAutoRollback: getEnvBool("DB_MIGRATION_AUTO_ROLLBACK", true),

		InputFolder:      getEnv("INPUT_FOLDER", "csv"),
		ChunkSize:        getEnvInt("CHUNK_SIZE", 5000),
		ParseWorkerCount: getEnvInt("PARSE_WORKER_COUNT", 4),
		FlushRetryCount:  getEnvInt("FLUSH_RETRY_COUNT", 3),
		FlushRetryDelay:  getEnvDuration("FLUSH_RETRY_DELAY", 500*time.Millisecond),
		ServeAfterRun:    getEnvBool("SERVE_AFTER_RUN", false),

		KafkaEnabled:      getEnvBool("KAFKA_ENABLED", false),
		KafkaBrokers:      getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaRunTopic:     getEnv("KAFKA_RUN_TOPIC", "dvf-run-events"),
		KafkaBatchSize:    getEnvInt("KAFKA_BATCH_SIZE", 100),
		KafkaBatchTimeout: getEnvDuration("KAFKA_BATCH_TIMEOUT", 100*time.Millisecond),
		KafkaRequiredAcks: getEnvInt("KAFKA_REQUIRED_ACKS", 1),
		KafkaCompression:  getEnv("KAFKA_COMPRESSION", "snappy"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
