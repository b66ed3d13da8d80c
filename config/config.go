package config

import "time"

type Config struct {
	AppName            string `validate:"required"`
	Port               int    `validate:"gte=1,lte=65535"`
	LogLevel           string `validate:"required"`
	PrettyLogs         bool
	TracingEnabled     bool
	TracingEndpoint    string
	TracingProtocol    string `validate:"omitempty,oneof=grpc http"`
	TracingInsecure    bool
	StartupMaxAttempts int `validate:"gte=1"`

	// PostgreSQL (normalized DVF schema)
	DatabaseHost                  string `validate:"required"`
	DatabasePort                  string `validate:"required"`
	DatabaseUserName              string
	DatabasePassword              string
	DatabaseName                  string `validate:"required"`
	DatabaseSSLMode               string
	DatabaseMaxOpenConns          int `validate:"gte=1"`
	DatabaseMaxIdleConns          int `validate:"gte=0"`
	DatabaseConnMaxLifetime       time.Duration
	DatabaseMigrationFolderPath   string `validate:"required"`
	DatabaseMigrationVersion      int
	DatabaseMigrationForce        int
	DatabaseMigrationAutoRollback bool

	// Ingestion
	InputFolder      string `validate:"required"`
	ChunkSize        int    `validate:"gte=1"`
	ParseWorkerCount int    `validate:"gte=1"`
	FlushRetryCount  int    `validate:"gte=0"`
	FlushRetryDelay  time.Duration
	ServeAfterRun    bool

	// Kafka producer for run lifecycle events
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaRunTopic     string
	KafkaBatchSize    int
	KafkaBatchTimeout time.Duration
	KafkaRequiredAcks int
	KafkaCompression  string
}
