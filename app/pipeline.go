package app

import (
	"github.com/upb/entitybus/config"
	"github.com/upb/entitybus/entities/parcel"
	"github.com/upb/entitybus/handlers"
	"github.com/upb/entitybus/internal/observability"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services/audit"
	"github.com/upb/entitybus/services/overflow"
	"github.com/upb/entitybus/services/validation"
	"github.com/upb/entitybus/transport/kafka"
	"go.uber.org/zap"
)

// Components are the collaborators the request pipeline is built from
type Components struct {
	Config       *config.Config
	Repositories *repositories.Repositories
	Blobs        repositories.BlobStore
	Tokens       validation.TokenValidator
	Verifier     validation.SignatureVerifier
	Emitter      audit.Emitter
	Metrics      *observability.Metrics
	Health       *observability.DegradationTracker
	Logger       *zap.Logger
}

// BuildRouter wires the validation chain, the audit decorators and the
// response assembler around every entity handler and mounts one listener
// per entity on a topic router.
func BuildRouter(c Components) *kafka.Router {
	cfg := c.Config
	interceptor := audit.NewInterceptor(c.Emitter, c.Logger)

	chain := validation.NewChain(c.Logger,
		validation.NewTokenCheck(c.Tokens, c.Logger),
		validation.NewSignatureCheck(validation.SignatureCheckConfig{
			Enabled: cfg.Signature.Enabled,
			Bucket:  cfg.Signature.Bucket,
		}, c.Blobs, c.Verifier, c.Logger),
	)

	deps := handlers.ListenerDeps{
		Chain: chain,
		Assembler: overflow.NewAssembler(overflow.Config{
			Bucket:         cfg.Overflow.Bucket,
			ThresholdBytes: cfg.Overflow.ThresholdBytes,
			KeyPrefix:      cfg.Overflow.KeyPrefix,
		}, c.Blobs, c.Logger),
		Interceptor:  interceptor,
		Transactions: c.Repositories.Transactions,
		Metrics:      c.Metrics,
		Health:       c.Health,
		Logger:       c.Logger,
	}

	// Writes are audited twice: once as the bus request, once as the row procedure call
	repos := *c.Repositories
	repos.DML = audit.NewAuditedDML(c.Repositories.DML, interceptor)

	router := kafka.NewRouter(c.Logger)
	for _, l := range entityListeners(&repos, interceptor, deps, c.Logger) {
		router.Mount(l, cfg.Kafka.RequestTopic)
	}
	return router
}

func entityListeners(repos *repositories.Repositories, interceptor *audit.Interceptor, deps handlers.ListenerDeps, logger *zap.Logger) []handlers.EntityListener {
	parcels := audit.NewAuditedHandler(parcel.NewHandler(repos, logger), parcel.Table, parcel.Mapper{}, interceptor)

	return []handlers.EntityListener{
		handlers.NewListener[parcel.Parcel, parcel.Criteria](parcel.Entity, parcels, deps),
	}
}
