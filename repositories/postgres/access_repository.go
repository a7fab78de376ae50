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

const (
	checkPermissionsQuery = `SELECT f_check_permissions($1, $2::text[], $3, $4::text[])`

	// readDiscriminator is the operation name f_check_permissions expects for reads
	readDiscriminator = "search"
)

// AccessRepository implements repositories.AccessChecker
type AccessRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAccessRepository creates a new access checker
func NewAccessRepository(db *DB, logger *zap.Logger) repositories.AccessChecker {
	return &AccessRepository{
		db:     db,
		logger: logger,
	}
}

// HasReadAccess asks the database whether claims may read fields of table
func (r *AccessRepository) HasReadAccess(ctx context.Context, table string, claims models.Claims, fields []string) (bool, error) {
	if fields == nil {
		fields = []string{}
	}

	executor := GetExecutor(ctx, r.db)
	var allowed sql.NullBool
	err := executor.QueryRowContext(ctx, checkPermissionsQuery,
		table,
		rolesParam(claims),
		readDiscriminator,
		pq.Array(fields),
	).Scan(&allowed)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, services.ProcedureError("permission check returned no row", nil)
		}
		return false, classifyError("permission check", err)
	}

	if !allowed.Valid || !allowed.Bool {
		r.logger.Debug("read access denied",
			zap.String("table", table),
			zap.String("user", claims.UserID))
		return false, nil
	}
	return true, nil
}
