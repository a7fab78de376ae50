package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/upb/entitybus/internal/observability"
	"github.com/upb/entitybus/middleware"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services"
	"github.com/upb/entitybus/services/audit"
	"github.com/upb/entitybus/services/crud"
	"github.com/upb/entitybus/services/overflow"
	"github.com/upb/entitybus/services/validation"
	"github.com/upb/entitybus/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names, also used as the last segment of request topics
const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpSearch     = "search"
	OpUpsert     = "upsert"
	OpBulkUpsert = "bulk-upsert"
)

// DispatchFunc handles one message and always returns an envelope
type DispatchFunc func(ctx context.Context, msg *Message) overflow.Envelope

// EntityListener is implemented by every Listener instantiation
type EntityListener interface {
	Entity() string
	Routes() map[string]DispatchFunc
}

// BulkResult is the payload of bulk upsert responses
type BulkResult struct {
	IDs []string `json:"ids"`
}

// ListenerDeps holds the collaborators shared by every entity listener
type ListenerDeps struct {
	Chain        *validation.Chain
	Assembler    *overflow.Assembler
	Interceptor  *audit.Interceptor
	Transactions repositories.TransactionManager
	Metrics      *observability.Metrics
	Health       *observability.DegradationTracker
	Logger       *zap.Logger
}

// Listener decodes, validates and dispatches the bus requests of one entity
// type. No error or panic escapes its entry points.
type Listener[E any, S any] struct {
	entity  string
	handler crud.EntityHandler[E, S]
	deps    ListenerDeps
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewListener creates a listener for entity
func NewListener[E any, S any](entity string, handler crud.EntityHandler[E, S], deps ListenerDeps) *Listener[E, S] {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Listener[E, S]{
		entity:  entity,
		handler: handler,
		deps:    deps,
		tracer:  otel.Tracer("github.com/upb/entitybus/handlers"),
		logger:  deps.Logger.With(zap.String("entity", entity)),
	}
}

// Entity returns the entity name the listener serves
func (l *Listener[E, S]) Entity() string {
	return l.entity
}

// Routes maps operation names to entry points
func (l *Listener[E, S]) Routes() map[string]DispatchFunc {
	return map[string]DispatchFunc{
		OpCreate:     l.OnCreate,
		OpRead:       l.OnRead,
		OpUpdate:     l.OnUpdate,
		OpDelete:     l.OnDelete,
		OpSearch:     l.OnSearch,
		OpUpsert:     l.OnUpsert,
		OpBulkUpsert: l.OnBulkUpsert,
	}
}

// OnCreate handles create requests. The payload is the entity.
func (l *Listener[E, S]) OnCreate(ctx context.Context, msg *Message) overflow.Envelope {
	return l.dispatch(ctx, OpCreate, msg, func(ctx context.Context, call crud.Call, raw []byte) (any, error) {
		var entity E
		if err := decode(raw, &entity); err != nil {
			return nil, err
		}
		id, err := l.handler.Create(ctx, call, entity)
		if err != nil {
			return nil, err
		}
		return models.CreateResult{ID: id}, nil
	})
}

// OnRead handles read requests. The payload is {"id": ...}.
func (l *Listener[E, S]) OnRead(ctx context.Context, msg *Message) overflow.Envelope {
	return l.dispatch(ctx, OpRead, msg, func(ctx context.Context, call crud.Call, raw []byte) (any, error) {
		var id models.EntityID
		if err := decode(raw, &id); err != nil {
			return nil, err
		}
		if err := utils.ValidateStruct(&id); err != nil {
			return nil, services.ContractViolation(err.Error())
		}
		entity, err := l.handler.Read(ctx, call, id.ID)
		if err != nil || entity == nil {
			return nil, err
		}
		return entity, nil
	})
}

// OnUpdate handles update requests. The payload is the entity including its id.
func (l *Listener[E, S]) OnUpdate(ctx context.Context, msg *Message) overflow.Envelope {
	return l.dispatch(ctx, OpUpdate, msg, func(ctx context.Context, call crud.Call, raw []byte) (any, error) {
		var entity E
		if err := decode(raw, &entity); err != nil {
			return nil, err
		}
		return nil, l.handler.Update(ctx, call, entity)
	})
}

// OnDelete handles delete requests. The payload is the entity; only its id is used.
func (l *Listener[E, S]) OnDelete(ctx context.Context, msg *Message) overflow.Envelope {
	return l.dispatch(ctx, OpDelete, msg, func(ctx context.Context, call crud.Call, raw []byte) (any, error) {
		var entity E
		if err := decode(raw, &entity); err != nil {
			return nil, err
		}
		return nil, l.handler.Delete(ctx, call, entity)
	})
}

// OnSearch handles search requests. The payload is the entity's search criteria.
func (l *Listener[E, S]) OnSearch(ctx context.Context, msg *Message) overflow.Envelope {
	return l.dispatch(ctx, OpSearch, msg, func(ctx context.Context, call crud.Call, raw []byte) (any, error) {
		var criteria S
		if err := decode(raw, &criteria); err != nil {
			return nil, err
		}
		return l.handler.Search(ctx, call, criteria)
	})
}

// OnUpsert handles upsert requests
func (l *Listener[E, S]) OnUpsert(ctx context.Context, msg *Message) overflow.Envelope {
	return l.dispatch(ctx, OpUpsert, msg, func(ctx context.Context, call crud.Call, raw []byte) (any, error) {
		var entity E
		if err := decode(raw, &entity); err != nil {
			return nil, err
		}
		id, err := l.handler.Upsert(ctx, call, entity)
		if err != nil {
			return nil, err
		}
		return models.CreateResult{ID: id}, nil
	})
}

// OnBulkUpsert handles a JSON array of entities, upserted in one transaction
func (l *Listener[E, S]) OnBulkUpsert(ctx context.Context, msg *Message) overflow.Envelope {
	return l.dispatch(ctx, OpBulkUpsert, msg, func(ctx context.Context, call crud.Call, raw []byte) (any, error) {
		if l.deps.Transactions == nil {
			return nil, services.ContractViolation("bulk upsert is not enabled")
		}
		var entities []E
		if err := decode(raw, &entities); err != nil {
			return nil, err
		}
		ids, err := crud.BulkUpsert(ctx, l.deps.Transactions, l.handler, call, entities)
		if err != nil {
			return nil, err
		}
		return BulkResult{IDs: ids}, nil
	})
}

type runFunc func(ctx context.Context, call crud.Call, raw []byte) (any, error)

// dispatch runs the steps shared by every operation: metadata extraction,
// validation, the operation itself, error mapping and response assembly.
func (l *Listener[E, S]) dispatch(ctx context.Context, op string, msg *Message, run runFunc) overflow.Envelope {
	start := time.Now()

	rc, sc, contentKey := RequestMetadata(msg)
	if rc.CorrelationID == "" {
		rc.CorrelationID = middleware.NewCorrelationID()
	}
	ctx = middleware.WithRequestContext(ctx, rc)
	ctx = middleware.WithOperation(ctx, op)

	ctx, span := l.tracer.Start(ctx, l.entity+"."+op,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("entitybus.entity", l.entity),
			attribute.String("entitybus.operation", op),
			attribute.String("entitybus.correlation_id", rc.CorrelationID),
			attribute.String("messaging.destination.name", msg.Topic),
		))
	defer span.End()

	logger := l.logger.With(
		zap.String("operation", op),
		zap.String("correlation_id", rc.CorrelationID))

	resp := l.process(ctx, op, msg, rc, sc, contentKey, run, logger)

	env := l.deps.Assembler.Assemble(ctx, rc.CorrelationID, resp)
	if env.Status != resp.Status && env.Status.DegradesService() {
		l.degrade("response overflow store unavailable")
	}

	span.SetAttributes(attribute.String("entitybus.status", env.Status.String()))
	if env.Status.IsOK() {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, env.Status.String())
	}

	elapsed := time.Since(start)
	if l.deps.Metrics != nil {
		l.deps.Metrics.ObserveDispatch(l.entity, op, env.Status, elapsed)
	}
	logger.Debug("request dispatched",
		zap.String("status", env.Status.String()),
		zap.Duration("elapsed", elapsed))

	return env
}

// process produces the response for one message. Panics become OPERATION_FAILED.
func (l *Listener[E, S]) process(ctx context.Context, op string, msg *Message, rc models.RequestContext, sc models.SecurityContext, contentKey string, run runFunc, logger *zap.Logger) (resp *models.Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling request", zap.Any("panic", r), zap.Stack("stack"))
			resp = models.Failed(models.StatusOperationFailed, fmt.Sprintf("%s operation failed", op))
		}
	}()

	result := l.deps.Chain.Validate(ctx, validation.Input{
		ContentKey: contentKey,
		Security:   sc,
		Payload:    msg.Value,
	})
	if !result.Valid {
		l.observeFailure(op, result.Status, result.Details, models.Claims{}, rc)
		return models.Failed(result.Status, result.Details)
	}

	ctx = middleware.WithClaims(ctx, result.Claims)
	call := crud.Call{Claims: result.Claims, Context: rc, Security: sc}

	payload, err := run(ctx, call, msg.Value)
	if err != nil {
		failed := HandleServiceError(err, op, logger)
		l.observeFailure(op, failed.Status, failed.Details, result.Claims, rc)
		return failed
	}
	return models.NewResponse(payload)
}

// observeFailure records security events and dependency outages
func (l *Listener[E, S]) observeFailure(op string, status models.Status, details string, claims models.Claims, rc models.RequestContext) {
	if status.IsSecurityEvent() && l.deps.Interceptor != nil {
		l.deps.Interceptor.Security(op, status, claims, rc)
	}
	if status.DegradesService() {
		l.degrade(details)
	}
}

func (l *Listener[E, S]) degrade(reason string) {
	if l.deps.Health != nil {
		l.deps.Health.MarkDegraded(reason)
	}
}

// decode unmarshals a request payload; malformed JSON breaks the message contract
func decode(raw []byte, v any) error {
	if len(raw) == 0 {
		return services.ContractViolation("empty payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return services.ContractViolation(fmt.Sprintf("malformed payload: %v", err))
	}
	return nil
}
