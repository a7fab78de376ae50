package audit

import (
	"context"

	"github.com/upb/entitybus/models"
	"go.uber.org/zap"
)

// Call describes one audited invocation
type Call struct {
	Method   string
	Action   models.AuditAction
	Table    string
	EntityID string
	Fields   []string
	Claims   models.Claims
	Source   models.RequestContext
}

func (c Call) event(step models.AuditStep) *models.AuditEvent {
	return models.NewAuditEvent(c.Method, c.Action, step).
		WithTable(c.Table).
		WithEntity(c.EntityID).
		WithFields(c.Fields).
		WithUser(c.Claims).
		WithSource(c.Source)
}

// Interceptor emits BEFORE and AFTER events around calls
type Interceptor struct {
	emitter Emitter
	logger  *zap.Logger
}

// NewInterceptor creates an interceptor over emitter
func NewInterceptor(emitter Emitter, logger *zap.Logger) *Interceptor {
	return &Interceptor{emitter: emitter, logger: logger}
}

// emit hands event to the emitter. Failures and panics are logged and
// never reach the audited call.
func (i *Interceptor) emit(event *models.AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("audit emitter panicked",
				zap.Any("panic", r),
				zap.String("action", string(event.Action)),
				zap.String("step", string(event.Step)))
		}
	}()

	if err := i.emitter.Emit(event); err != nil {
		i.logger.Warn("failed to emit audit event",
			zap.Error(err),
			zap.String("action", string(event.Action)),
			zap.String("step", string(event.Step)))
	}
}

// Security records a rejected or forbidden request
func (i *Interceptor) Security(method string, status models.Status, claims models.Claims, source models.RequestContext) {
	i.emit(models.NewSecurityEvent(method, status).WithUser(claims).WithSource(source))
}

// Around emits a BEFORE event, runs fn and, when fn succeeds, emits an
// AFTER event. refine may adjust the AFTER event from the result, e.g. to
// set the generated entity id. fn's result and error are returned unchanged.
func Around[T any](ctx context.Context, i *Interceptor, call Call, fn func(ctx context.Context) (T, error), refine func(result T, after *models.AuditEvent)) (T, error) {
	i.emit(call.event(models.AuditStepBefore))

	result, err := fn(ctx)
	if err != nil {
		return result, err
	}

	after := call.event(models.AuditStepAfter)
	if refine != nil {
		refine(result, after)
	}
	i.emit(after)

	return result, nil
}

// around0 adapts Around for calls that return only an error
func around0(ctx context.Context, i *Interceptor, call Call, fn func(ctx context.Context) error) error {
	_, err := Around(ctx, i, call, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, nil)
	return err
}
