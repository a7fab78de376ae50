package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
				assert.Equal(t, 8, cfg.Kafka.Workers)
				assert.True(t, cfg.Signature.Enabled)
				assert.Equal(t, 900*1024, cfg.Overflow.ThresholdBytes)
				assert.Equal(t, 1, cfg.Audit.WorkerCount)
			},
		},
		{
			name: "kafka and keycloak lists",
			envVars: map[string]string{
				"KAFKA_BROKERS":   "b1:9092, b2:9092,,",
				"KEYCLOAK_REALMS": "land,water",
				"KAFKA_WORKERS":   "16",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
				assert.Equal(t, []string{"land", "water"}, cfg.Keycloak.Realms)
				assert.Equal(t, 16, cfg.Kafka.Workers)
			},
		},
		{
			name: "custom durations and overflow",
			envVars: map[string]string{
				"BLOB_TTL":                 "2h",
				"OVERFLOW_THRESHOLD_BYTES": "1024",
				"DEGRADED_WINDOW":          "30s",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Hour, cfg.Blob.TTL)
				assert.Equal(t, 1024, cfg.Overflow.ThresholdBytes)
				assert.Equal(t, 30*time.Second, cfg.Observability.DegradedWindow)
			},
		},
		{
			name: "signature check disabled outside production",
			envVars: map[string]string{
				"SIGNATURE_CHECK_ENABLED": "false",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Signature.Enabled)
			},
		},
		{
			name: "signature check cannot be disabled in production",
			envVars: map[string]string{
				"ENVIRONMENT":             "production",
				"SIGNATURE_CHECK_ENABLED": "false",
			},
			wantErr: true,
		},
		{
			name: "database url takes precedence",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://u:p@db.internal:6543/entities?sslmode=require",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@db.internal:6543/entities?sslmode=require", cfg.Database.DSN())
				assert.Equal(t, "host=db.internal port=6543 database=entities", cfg.Database.LogString())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := New(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database:    DatabaseConfig{Host: "localhost", User: "dev", Database: "entities"},
		Kafka:       KafkaConfig{Brokers: []string{"b:9092"}, Workers: 1, AuditTopic: "audit"},
		Keycloak:    KeycloakConfig{Realms: []string{"master"}},
		Signature:   SignatureConfig{Enabled: true, VerifierURL: "http://verifier", Bucket: "signatures"},
		Overflow:    OverflowConfig{ThresholdBytes: 1},
		Audit:       AuditConfig{BufferSize: 1, WorkerCount: 1},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no database", func(c *Config) { c.Database = DatabaseConfig{} }, "database configuration required"},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }, "kafka broker"},
		{"no workers", func(c *Config) { c.Kafka.Workers = 0 }, "kafka workers"},
		{"no realms", func(c *Config) { c.Keycloak.Realms = nil }, "keycloak realm"},
		{"no verifier", func(c *Config) { c.Signature.VerifierURL = "" }, "verifier URL"},
		{"no overflow threshold", func(c *Config) { c.Overflow.ThresholdBytes = 0 }, "overflow threshold"},
		{"no audit workers", func(c *Config) { c.Audit.WorkerCount = 0 }, "audit buffer size"},
		{"no log level", func(c *Config) { c.Observability.LogLevel = "" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Environment(t *testing.T) {
	assert.True(t, (&Config{Environment: "prod"}).IsProduction())
	assert.True(t, (&Config{Environment: "dev"}).IsDevelopment())
	assert.False(t, (&Config{Environment: "staging"}).IsProduction())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "p ")
}

func TestKafkaConfig_RequestTopic(t *testing.T) {
	cfg := KafkaConfig{TopicPrefix: "entity."}
	assert.Equal(t, "entity.parcel.create", cfg.RequestTopic("parcel", "create"))
}

func TestKeycloakConfig_URLs(t *testing.T) {
	cfg := KeycloakConfig{BaseURL: "https://sso.example.com"}
	assert.Equal(t, "https://sso.example.com/realms/land", cfg.IssuerURL("land"))
	assert.Equal(t, "https://sso.example.com/realms/land/protocol/openid-connect/certs", cfg.JWKSURL("land"))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "t")
	t.Setenv("TEST_DURATION", "bogus")

	assert.Equal(t, 5, getEnvAsInt("TEST_INT", 5))
	assert.True(t, getEnvAsBool("TEST_BOOL", false))
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
	assert.Equal(t, []string{"x"}, getEnvAsSlice("TEST_UNSET_SLICE", []string{"x"}))
}
