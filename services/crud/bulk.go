package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services"
)

// BulkUpsert upserts entities in one transaction and returns their ids in
// input order. The first failure rolls back the whole batch; the returned
// error names the failing row.
func BulkUpsert[E any, S any](ctx context.Context, txMgr repositories.TransactionManager, h EntityHandler[E, S], call Call, entities []E) ([]string, error) {
	if len(entities) == 0 {
		return []string{}, nil
	}

	ids, err := services.WithTransactionResult(ctx, txMgr, func(ctx context.Context, _ repositories.Transaction) ([]string, error) {
		ids := make([]string, 0, len(entities))
		for i, entity := range entities {
			id, err := h.Upsert(ctx, call, entity)
			if err != nil {
				return nil, rowError(i, err)
			}
			ids = append(ids, id)
		}
		return ids, nil
	})
	if err != nil {
		var domainErr *services.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, services.SqlError("bulk upsert transaction failed", err)
	}
	return ids, nil
}

// rowError prefixes the details of err with the failing row index
func rowError(index int, err error) error {
	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		return services.ProcedureError(fmt.Sprintf("row %d: upsert failed", index), err)
	}

	out := *domainErr
	out.Err = err
	if out.Details != "" {
		out.Details = fmt.Sprintf("row %d: %s", index, out.Details)
	}
	return &out
}
