package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/upb/entitybus/config"
	"github.com/upb/entitybus/handlers"
	"github.com/upb/entitybus/internal/observability"
	"github.com/upb/entitybus/keycloak"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/repositories/memory"
	"github.com/upb/entitybus/repositories/postgres"
	redisstore "github.com/upb/entitybus/repositories/redis"
	"github.com/upb/entitybus/services/audit"
	"github.com/upb/entitybus/services/signature"
	"github.com/upb/entitybus/transport/kafka"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory  *postgres.RepositoryFactory
	Repositories *repositories.Repositories

	// Blob store
	Redis *redisstore.Client
	Blobs repositories.BlobStore

	// Observability
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Health   *observability.DegradationTracker

	// Bus
	Producer *kgo.Client
	Client   *kgo.Client
	Audit    *audit.Service
	Router   *kafka.Router
	Consumer *kafka.Consumer

	HealthHandler *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initBlobStore(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	deps.initObservability(cfg)

	if err := deps.initAudit(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize audit: %w", err)
	}

	if err := deps.initPipeline(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.Strings("topics", deps.Router.Topics()))
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.Repositories = factory.NewRepositories()
	d.Logger.Info("repositories initialized")
	return nil
}

// initBlobStore connects to Redis, or falls back to process memory when no
// Redis URL is configured outside production
func (d *Dependencies) initBlobStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Blob.RedisURL == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("REDIS_URL is required in production")
		}
		d.Logger.Warn("no redis configured, using in-memory blob store")
		d.Blobs = memory.NewBlobStore()
		return nil
	}

	client, err := redisstore.NewClient(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	d.Redis = client
	d.Blobs = redisstore.NewBlobStore(client, cfg.Blob.TTL, d.Logger)
	d.Logger.Info("redis blob store connected")
	return nil
}

func (d *Dependencies) initObservability(cfg *config.Config) {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewMetrics(d.Registry)
	d.Health = observability.NewDegradationTracker(cfg.Observability.DegradedWindow, d.Metrics.Degraded)

	checks := map[string]handlers.HealthChecker{"database": d.DB}
	if d.Redis != nil {
		checks["blob_store"] = d.Redis
	}
	d.HealthHandler = handlers.NewHealthHandler(checks, d.Health, d.Logger)
}

// initAudit starts the audit dispatcher publishing to the audit topic
func (d *Dependencies) initAudit(cfg *config.Config) error {
	var sink audit.Sink
	if cfg.Kafka.AuditTopic == "" {
		d.Logger.Warn("no audit topic configured, audit events go to the log")
		sink = audit.NewLogSink(d.Logger)
	} else {
		producer, err := kafka.NewClient(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("failed to create audit producer: %w", err)
		}
		d.Producer = producer
		sink = kafka.NewAuditSink(producer, cfg.Kafka.AuditTopic)
	}

	d.Audit = audit.NewService(sink, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	return d.Audit.Start()
}

// initPipeline builds the listeners and the consumer that feeds them
func (d *Dependencies) initPipeline(cfg *config.Config) error {
	components := Components{
		Config:       cfg,
		Repositories: d.Repositories,
		Blobs:        d.Blobs,
		Tokens: keycloak.NewValidator(keycloak.Config{
			BaseURL:     cfg.Keycloak.BaseURL,
			Realms:      cfg.Keycloak.Realms,
			CacheTTL:    cfg.Keycloak.CacheTTL,
			HTTPTimeout: cfg.Keycloak.HTTPTimeout,
		}),
		Emitter: d.Audit,
		Metrics: d.Metrics,
		Health:  d.Health,
		Logger:  d.Logger,
	}

	if cfg.Signature.Enabled {
		verifier, err := signature.NewClient(signature.Config{
			URL:     cfg.Signature.VerifierURL,
			Timeout: cfg.Signature.Timeout,
		}, d.Logger)
		if err != nil {
			return err
		}
		components.Verifier = verifier
	} else {
		d.Logger.Warn("digital signature check disabled")
	}

	d.Router = BuildRouter(components)

	client, err := kafka.NewClient(cfg.Kafka, d.Router.Topics()...)
	if err != nil {
		return fmt.Errorf("failed to create kafka client: %w", err)
	}
	d.Client = client
	d.Consumer = kafka.NewConsumer(client, d.Router, cfg.Kafka, d.Logger)
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Consumer first so no new requests produce audit events
	if d.Client != nil {
		d.Client.Close()
	}

	if d.Audit != nil {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.Producer != nil {
		d.Producer.Close()
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
