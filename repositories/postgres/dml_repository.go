package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services"
	"go.uber.org/zap"
)

// Row-level write procedures. Each call touches exactly one table.
const (
	insertQuery = `SELECT f_row_insert FROM f_row_insert($1, $2::hstore, $3::hstore, $4::text[])`
	updateQuery = `SELECT f_row_update($1, $2, $3::hstore, $4::hstore, $5::text[])`
	deleteQuery = `SELECT f_row_delete($1, $2, $3::hstore, $4::text[])`
)

// DMLRepository implements repositories.DMLRepository on the f_row_* procedures
type DMLRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDMLRepository creates a new DML repository
func NewDMLRepository(db *DB, logger *zap.Logger) repositories.DMLRepository {
	return &DMLRepository{
		db:     db,
		logger: logger,
	}
}

// rolesParam never sends SQL NULL for the role array
func rolesParam(c models.Claims) interface{} {
	roles := c.Roles
	if roles == nil {
		roles = []string{}
	}
	return pq.Array(roles)
}

// Save inserts a row and returns the id reported by the procedure
func (r *DMLRepository) Save(ctx context.Context, args models.DmlOperationArgs) (string, error) {
	if err := args.Validate(models.DmlInsert); err != nil {
		return "", services.ContractViolation(err.Error())
	}

	executor := GetExecutor(ctx, r.db)
	var id sql.NullString
	err := executor.QueryRowContext(ctx, insertQuery,
		args.TableName,
		EncodeHstore(args.SysValues),
		EncodeHstoreValues(args.BusinessValues),
		rolesParam(args.Claims),
	).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", services.ProcedureError("insert procedure returned no row", nil)
		}
		return "", classifyError("insert", err)
	}
	if !id.Valid || id.String == "" {
		return "", services.ProcedureError("insert procedure returned no id", nil)
	}

	r.logger.Debug("row inserted",
		zap.String("table", args.TableName),
		zap.String("id", id.String))
	return id.String, nil
}

// Update updates the row identified by args.EntityID
func (r *DMLRepository) Update(ctx context.Context, args models.DmlOperationArgs) error {
	if err := args.Validate(models.DmlUpdate); err != nil {
		return services.ContractViolation(err.Error())
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, updateQuery,
		args.TableName,
		args.EntityID,
		EncodeHstore(args.SysValues),
		EncodeHstoreValues(args.BusinessValues),
		rolesParam(args.Claims),
	)
	if err != nil {
		return classifyError("update", err)
	}

	r.logger.Debug("row updated",
		zap.String("table", args.TableName),
		zap.String("id", args.EntityID))
	return nil
}

// Delete deletes the row identified by args.EntityID
func (r *DMLRepository) Delete(ctx context.Context, args models.DmlOperationArgs) error {
	if err := args.Validate(models.DmlDelete); err != nil {
		return services.ContractViolation(err.Error())
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, deleteQuery,
		args.TableName,
		args.EntityID,
		EncodeHstore(args.SysValues),
		rolesParam(args.Claims),
	)
	if err != nil {
		return classifyError("delete", err)
	}

	r.logger.Debug("row deleted",
		zap.String("table", args.TableName),
		zap.String("id", args.EntityID))
	return nil
}
