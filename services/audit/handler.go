package audit

import (
	"context"

	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/services/crud"
	"github.com/upb/entitybus/services/mapper"
)

// Method names recorded for bus-dispatched operations
const (
	MethodCreate = "create"
	MethodRead   = "read"
	MethodUpdate = "update"
	MethodDelete = "delete"
	MethodSearch = "search"
	MethodUpsert = "upsert"
)

// AuditedHandler records every operation of an entity handler under the
// bus action namespace.
type AuditedHandler[E any, S any] struct {
	inner       crud.EntityHandler[E, S]
	table       models.TableDescriptor
	mapper      mapper.Mapper[E]
	interceptor *Interceptor
}

// NewAuditedHandler decorates inner
func NewAuditedHandler[E any, S any](inner crud.EntityHandler[E, S], table models.TableDescriptor, m mapper.Mapper[E], interceptor *Interceptor) *AuditedHandler[E, S] {
	return &AuditedHandler[E, S]{
		inner:       inner,
		table:       table,
		mapper:      m,
		interceptor: interceptor,
	}
}

func (h *AuditedHandler[E, S]) call(method string, action models.AuditAction, c crud.Call) Call {
	return Call{
		Method: method,
		Action: action.Bus(),
		Table:  h.table.Table,
		Claims: c.Claims,
		Source: c.Context,
	}
}

// describe returns the primary key and populated columns of entity.
// Mapping errors leave both empty; the inner handler reports them.
func (h *AuditedHandler[E, S]) describe(entity E) (string, []string) {
	values, err := h.mapper.ToMap(entity)
	if err != nil {
		return "", nil
	}
	id, _ := mapper.GetPrimaryKey(values, h.table.PKColumn)
	return id, mapper.PopulatedFields(values, h.table.Fields())
}

// Create implements crud.EntityHandler
func (h *AuditedHandler[E, S]) Create(ctx context.Context, c crud.Call, entity E) (string, error) {
	call := h.call(MethodCreate, models.AuditActionCreate, c)
	_, call.Fields = h.describe(entity)

	return Around(ctx, h.interceptor, call, func(ctx context.Context) (string, error) {
		return h.inner.Create(ctx, c, entity)
	}, func(id string, after *models.AuditEvent) {
		after.WithEntity(id)
	})
}

// Read implements crud.EntityHandler. BEFORE carries the requested columns,
// AFTER the populated columns of the returned entity.
func (h *AuditedHandler[E, S]) Read(ctx context.Context, c crud.Call, id string) (*E, error) {
	call := h.call(MethodRead, models.AuditActionRead, c)
	call.EntityID = id
	call.Fields = h.table.Fields()

	return Around(ctx, h.interceptor, call, func(ctx context.Context) (*E, error) {
		return h.inner.Read(ctx, c, id)
	}, func(entity *E, after *models.AuditEvent) {
		if entity == nil {
			after.WithFields(nil)
			return
		}
		_, fields := h.describe(*entity)
		after.WithFields(fields)
	})
}

// Update implements crud.EntityHandler
func (h *AuditedHandler[E, S]) Update(ctx context.Context, c crud.Call, entity E) error {
	call := h.call(MethodUpdate, models.AuditActionUpdate, c)
	call.EntityID, call.Fields = h.describe(entity)

	return around0(ctx, h.interceptor, call, func(ctx context.Context) error {
		return h.inner.Update(ctx, c, entity)
	})
}

// Delete implements crud.EntityHandler
func (h *AuditedHandler[E, S]) Delete(ctx context.Context, c crud.Call, entity E) error {
	call := h.call(MethodDelete, models.AuditActionDelete, c)
	call.EntityID, _ = h.describe(entity)

	return around0(ctx, h.interceptor, call, func(ctx context.Context) error {
		return h.inner.Delete(ctx, c, entity)
	})
}

// Search implements crud.EntityHandler. Both events carry the requested
// columns; results are not inspected.
func (h *AuditedHandler[E, S]) Search(ctx context.Context, c crud.Call, criteria S) ([]E, error) {
	call := h.call(MethodSearch, models.AuditActionSearch, c)
	call.Fields = h.table.Fields()

	return Around(ctx, h.interceptor, call, func(ctx context.Context) ([]E, error) {
		return h.inner.Search(ctx, c, criteria)
	}, nil)
}

// Upsert implements crud.EntityHandler. It is recorded as a create or an
// update depending on whether the entity carries a primary key.
func (h *AuditedHandler[E, S]) Upsert(ctx context.Context, c crud.Call, entity E) (string, error) {
	id, fields := h.describe(entity)
	action := models.AuditActionUpdate
	if id == "" {
		action = models.AuditActionCreate
	}
	call := h.call(MethodUpsert, action, c)
	call.EntityID, call.Fields = id, fields

	return Around(ctx, h.interceptor, call, func(ctx context.Context) (string, error) {
		return h.inner.Upsert(ctx, c, entity)
	}, func(id string, after *models.AuditEvent) {
		after.WithEntity(id)
	})
}
