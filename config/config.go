package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Environment   string
	Database      DatabaseConfig
	Kafka         KafkaConfig
	Keycloak      KeycloakConfig
	Signature     SignatureConfig
	Blob          BlobConfig
	Overflow      OverflowConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// KafkaConfig holds message bus configuration
type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	ClientID string
	// TopicPrefix is prepended to "<entity>.<operation>" to form request topics
	TopicPrefix string
	// ReplySuffix is appended to a request topic when no reply topic header is present
	ReplySuffix string
	AuditTopic  string
	// Workers bounds the records processed concurrently per poll
	Workers int
}

// KeycloakConfig holds token issuer configuration
type KeycloakConfig struct {
	BaseURL     string
	Realms      []string
	CacheTTL    time.Duration
	HTTPTimeout time.Duration
}

// SignatureConfig holds digital seal verification configuration
type SignatureConfig struct {
	Enabled     bool
	VerifierURL string
	Bucket      string
	Timeout     time.Duration
}

// BlobConfig holds blob store (Redis) configuration
type BlobConfig struct {
	RedisURL     string
	TTL          time.Duration
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// OverflowConfig holds response offloading configuration
type OverflowConfig struct {
	Bucket         string
	ThresholdBytes int
	KeyPrefix      string
}

// AuditConfig holds audit dispatcher configuration
type AuditConfig struct {
	BufferSize  int
	WorkerCount int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
	HTTPAddr       string
	// DegradedWindow is how long the service reports degraded after a dependency failure
	DegradedWindow time.Duration
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Database:    loadDatabaseConfig(),
		Kafka: KafkaConfig{
			Brokers:     getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID:     getEnv("KAFKA_GROUP_ID", "entity-listener"),
			ClientID:    getEnv("KAFKA_CLIENT_ID", "entitybus"),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "entity."),
			ReplySuffix: getEnv("KAFKA_REPLY_SUFFIX", ".reply"),
			AuditTopic:  getEnv("AUDIT_TOPIC", "audit.events"),
			Workers:     getEnvAsInt("KAFKA_WORKERS", 8),
		},
		Keycloak: KeycloakConfig{
			BaseURL:     strings.TrimSuffix(getEnv("KEYCLOAK_BASE_URL", "http://localhost:8080"), "/"),
			Realms:      getEnvAsSlice("KEYCLOAK_REALMS", []string{"master"}),
			CacheTTL:    getEnvAsDuration("KEYCLOAK_JWKS_CACHE_TTL", time.Hour),
			HTTPTimeout: getEnvAsDuration("KEYCLOAK_HTTP_TIMEOUT", 10*time.Second),
		},
		Signature: SignatureConfig{
			Enabled:     getEnvAsBool("SIGNATURE_CHECK_ENABLED", true),
			VerifierURL: getEnv("SIGNATURE_VERIFIER_URL", "http://localhost:8090/api/v1/verify"),
			Bucket:      getEnv("SIGNATURE_BUCKET", "signatures"),
			Timeout:     getEnvAsDuration("SIGNATURE_TIMEOUT", 10*time.Second),
		},
		Blob: BlobConfig{
			RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
			TTL:          getEnvAsDuration("BLOB_TTL", 24*time.Hour),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Overflow: OverflowConfig{
			Bucket:         getEnv("OVERFLOW_BUCKET", "responses"),
			ThresholdBytes: getEnvAsInt("OVERFLOW_THRESHOLD_BYTES", 900*1024),
			KeyPrefix:      getEnv("OVERFLOW_KEY_PREFIX", "response-"),
		},
		Audit: AuditConfig{
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount: getEnvAsInt("AUDIT_WORKER_COUNT", 1),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			HTTPAddr:       getEnv("HTTP_ADDR", ":8081"),
			DegradedWindow: getEnvAsDuration("DEGRADED_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if c.Kafka.Workers < 1 {
		return fmt.Errorf("kafka workers must be positive")
	}
	if c.Kafka.AuditTopic == "" {
		return fmt.Errorf("audit topic is required")
	}

	if len(c.Keycloak.Realms) == 0 {
		return fmt.Errorf("at least one keycloak realm is required")
	}

	if c.Signature.Enabled {
		if c.Signature.VerifierURL == "" {
			return fmt.Errorf("signature verifier URL is required when signature check is enabled")
		}
		if c.Signature.Bucket == "" {
			return fmt.Errorf("signature bucket is required when signature check is enabled")
		}
	} else if c.IsProduction() {
		return fmt.Errorf("signature check cannot be disabled in production")
	}

	if c.Overflow.ThresholdBytes <= 0 {
		return fmt.Errorf("overflow threshold must be positive")
	}

	if c.Audit.BufferSize < 1 || c.Audit.WorkerCount < 1 {
		return fmt.Errorf("audit buffer size and worker count must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// RequestTopic returns the topic an entity operation is consumed from
func (c *KafkaConfig) RequestTopic(entity, operation string) string {
	return c.TopicPrefix + entity + "." + operation
}

// JWKSURL returns the certificate endpoint of realm
func (c *KeycloakConfig) JWKSURL(realm string) string {
	return c.IssuerURL(realm) + "/protocol/openid-connect/certs"
}

// IssuerURL returns the token issuer of realm
func (c *KeycloakConfig) IssuerURL(realm string) string {
	return c.BaseURL + "/realms/" + realm
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "dev"),
		Password:        getEnv("DB_PASSWORD", "dev_password"),
		Database:        getEnv("DB_NAME", "entities"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma separated value, dropping blanks
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
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

func getEnvAsBool(key string, defaultValue bool) bool {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
