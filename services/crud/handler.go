// Package crud implements the generic entity operations shared by every
// entity type: create, read, update, delete, search and upsert.
package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services"
	"github.com/upb/entitybus/services/mapper"
	"github.com/upb/entitybus/utils"
	"go.uber.org/zap"
)

// Call carries what every operation needs to know about the caller
type Call struct {
	Claims   models.Claims
	Context  models.RequestContext
	Security models.SecurityContext
}

// EntityHandler is the set of operations available for one entity type
type EntityHandler[E any, S any] interface {
	Create(ctx context.Context, call Call, entity E) (string, error)
	Read(ctx context.Context, call Call, id string) (*E, error)
	Update(ctx context.Context, call Call, entity E) error
	Delete(ctx context.Context, call Call, entity E) error
	Search(ctx context.Context, call Call, criteria S) ([]E, error)
	Upsert(ctx context.Context, call Call, entity E) (string, error)
}

// SearchSpec translates entity-specific search criteria into a generic query
type SearchSpec[S any] interface {
	Conditions(criteria S) []repositories.Condition
	Paging(criteria S) models.Paging
}

// PreprocessFunc runs before a create is encoded. It may modify the entity.
type PreprocessFunc[E any] func(ctx context.Context, call Call, entity *E) error

// Config assembles a Handler
type Config[E any, S any] struct {
	Table      models.TableDescriptor
	Mapper     mapper.Mapper[E]
	Search     SearchSpec[S]
	DML        repositories.DMLRepository
	Access     repositories.AccessChecker
	Reader     repositories.EntityReader
	Preprocess PreprocessFunc[E]
	Logger     *zap.Logger
}

// Handler implements EntityHandler on top of the DML procedures,
// the access checker and the entity reader.
type Handler[E any, S any] struct {
	table      models.TableDescriptor
	mapper     mapper.Mapper[E]
	search     SearchSpec[S]
	dml        repositories.DMLRepository
	access     repositories.AccessChecker
	reader     repositories.EntityReader
	preprocess PreprocessFunc[E]
	logger     *zap.Logger
}

// NewHandler creates a new entity handler
func NewHandler[E any, S any](cfg Config[E, S]) *Handler[E, S] {
	preprocess := cfg.Preprocess
	if preprocess == nil {
		preprocess = func(context.Context, Call, *E) error { return nil }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler[E, S]{
		table:      cfg.Table,
		mapper:     cfg.Mapper,
		search:     cfg.Search,
		dml:        cfg.DML,
		access:     cfg.Access,
		reader:     cfg.Reader,
		preprocess: preprocess,
		logger:     logger.With(zap.String("table", cfg.Table.Table)),
	}
}

// Table returns the descriptor the handler works on
func (h *Handler[E, S]) Table() models.TableDescriptor {
	return h.table
}

func (h *Handler[E, S]) args(call Call, id string, values map[string]any) models.DmlOperationArgs {
	return models.DmlOperationArgs{
		TableName:      h.table.Table,
		Claims:         call.Claims,
		EntityID:       id,
		SysValues:      mapper.BuildSysValues(call.Claims.UserID, call.Context, call.Security),
		BusinessValues: values,
	}
}

func (h *Handler[E, S]) toMap(entity E) (map[string]any, error) {
	values, err := h.mapper.ToMap(entity)
	if err != nil {
		return nil, services.ContractViolation(fmt.Sprintf("cannot encode %s entity: %v", h.table.Table, err))
	}
	return values, nil
}

// Create inserts entity and returns the generated id. A primary key set
// on the entity is ignored.
func (h *Handler[E, S]) Create(ctx context.Context, call Call, entity E) (string, error) {
	if err := h.preprocess(ctx, call, &entity); err != nil {
		return "", err
	}

	values, err := h.toMap(entity)
	if err != nil {
		return "", err
	}
	delete(values, h.table.PKColumn)

	return h.dml.Save(ctx, h.args(call, "", values))
}

// Update writes every column of entity to the row it identifies
func (h *Handler[E, S]) Update(ctx context.Context, call Call, entity E) error {
	values, err := h.toMap(entity)
	if err != nil {
		return err
	}

	id, ok := mapper.TakePrimaryKey(values, h.table.PKColumn)
	if !ok {
		return services.ConstraintViolation("No entity ID for update", services.ConstraintNotNull)
	}

	return h.dml.Update(ctx, h.args(call, id, values))
}

// Delete removes the row entity identifies
func (h *Handler[E, S]) Delete(ctx context.Context, call Call, entity E) error {
	values, err := h.toMap(entity)
	if err != nil {
		return err
	}

	id, ok := mapper.GetPrimaryKey(values, h.table.PKColumn)
	if !ok {
		return services.ConstraintViolation("No entity ID for delete", services.ConstraintNotNull)
	}

	return h.dml.Delete(ctx, h.args(call, id, nil))
}

// Upsert updates the entity when it carries a primary key and creates it
// otherwise. It returns the entity id in both cases.
func (h *Handler[E, S]) Upsert(ctx context.Context, call Call, entity E) (string, error) {
	values, err := h.toMap(entity)
	if err != nil {
		return "", err
	}

	id, ok := mapper.GetPrimaryKey(values, h.table.PKColumn)
	if !ok {
		return h.Create(ctx, call, entity)
	}
	if err := h.Update(ctx, call, entity); err != nil {
		return "", err
	}
	return id, nil
}

// Read returns the entity with the given id, or nil when there is none.
// The caller needs read access to every column of the table.
func (h *Handler[E, S]) Read(ctx context.Context, call Call, id string) (*E, error) {
	if id == "" {
		return nil, services.ContractViolation("missing entity id")
	}

	allowed, err := h.access.HasReadAccess(ctx, h.table.Table, call.Claims, h.table.Fields())
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, services.Forbidden(fmt.Sprintf("read access to %s denied", h.table.Table), nil)
	}

	row, found, err := h.reader.FindByID(ctx, h.table, id)
	if err != nil {
		return nil, asSQLError(fmt.Sprintf("failed to read %s", h.table.Table), err)
	}
	if !found {
		return nil, nil
	}

	entity, err := h.mapper.FromRow(row)
	if err != nil {
		return nil, services.SqlError(fmt.Sprintf("failed to decode %s row", h.table.Table), err)
	}
	return &entity, nil
}

// Search returns the entities matching criteria
func (h *Handler[E, S]) Search(ctx context.Context, call Call, criteria S) ([]E, error) {
	if h.search == nil {
		return nil, services.ContractViolation(fmt.Sprintf("search is not supported for %s", h.table.Table))
	}
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}

	q, err := h.query(criteria)
	if err != nil {
		return nil, err
	}

	rows, err := h.reader.Search(ctx, h.table, q)
	if err != nil {
		return nil, asSQLError(fmt.Sprintf("failed to search %s", h.table.Table), err)
	}

	out := make([]E, 0, len(rows))
	for _, row := range rows {
		entity, err := h.mapper.FromRow(row)
		if err != nil {
			return nil, services.SqlError(fmt.Sprintf("failed to decode %s row", h.table.Table), err)
		}
		out = append(out, entity)
	}
	return out, nil
}

func (h *Handler[E, S]) query(criteria S) (repositories.Query, error) {
	paging := h.search.Paging(criteria)
	q := repositories.Query{Conditions: h.search.Conditions(criteria)}

	if paging.Offset != nil {
		if *paging.Offset < 0 {
			return q, services.ContractViolation("offset must not be negative")
		}
		q.Offset = *paging.Offset
	}
	if paging.Limit != nil {
		if *paging.Limit < 0 {
			return q, services.ContractViolation("limit must not be negative")
		}
		q.Limit = *paging.Limit
	}

	if maxLimit := h.table.MaxSearchLimit; maxLimit > 0 && (q.Limit == 0 || q.Limit > maxLimit) {
		if q.Limit > maxLimit {
			h.logger.Debug("search limit clamped", zap.Int("requested", q.Limit), zap.Int("max", maxLimit))
		}
		q.Limit = maxLimit
	}
	return q, nil
}

// validateCriteria applies struct tags of search criteria types
func validateCriteria(criteria any) error {
	err := utils.ValidateStruct(criteria)
	if err == nil {
		return nil
	}

	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		return services.ContractViolation(verr.Summary())
	}

	// InvalidValidationError: criteria is not a struct and has no tags to apply
	return nil
}

func asSQLError(message string, err error) error {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return services.SqlError(message, err)
}
