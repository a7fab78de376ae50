package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return WrapDB(sqlDB, zap.NewNop()), mock
}

func testClaims() models.Claims {
	return models.Claims{UserID: "user", Roles: []string{"role"}}
}

func TestDMLRepository_Save(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDMLRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("parcel", `"curr_user"=>"user"`, `"name"=>"north field"`, pq.Array([]string{"role"})).
		WillReturnRows(sqlmock.NewRows([]string{"f_row_insert"}).AddRow("42"))

	id, err := repo.Save(context.Background(), models.DmlOperationArgs{
		TableName:      "parcel",
		Claims:         testClaims(),
		SysValues:      map[string]string{"curr_user": "user"},
		BusinessValues: map[string]any{"name": "north field"},
	})

	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDMLRepository_Save_EmptyResultIsProcedureError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDMLRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"f_row_insert"}))

	_, err := repo.Save(context.Background(), models.DmlOperationArgs{
		TableName:      "parcel",
		Claims:         testClaims(),
		SysValues:      map[string]string{"curr_user": "user"},
		BusinessValues: map[string]any{"name": "x"},
	})

	require.Error(t, err)
	assert.Equal(t, models.StatusProcedureError, services.StatusOf(err))
	assert.Contains(t, err.Error(), "no row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDMLRepository_Save_NilRolesSendsEmptyArray(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDMLRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("parcel", sqlmock.AnyArg(), sqlmock.AnyArg(), "{}").
		WillReturnRows(sqlmock.NewRows([]string{"f_row_insert"}).AddRow("1"))

	_, err := repo.Save(context.Background(), models.DmlOperationArgs{
		TableName:      "parcel",
		Claims:         models.Claims{UserID: "user"},
		SysValues:      map[string]string{},
		BusinessValues: map[string]any{},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDMLRepository_SQLErrorClassification(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     models.Status
		wantConstraint string
	}{
		{"not null", &pq.Error{Code: "23502", Message: "null value in column \"name\""}, models.StatusConstraintViolation, "not null"},
		{"foreign key", &pq.Error{Code: "23503", Message: "violates foreign key"}, models.StatusConstraintViolation, "foreign key"},
		{"unique", &pq.Error{Code: "23505", Message: "duplicate key"}, models.StatusConstraintViolation, "unique"},
		{"permission denied", &pq.Error{Code: "42501", Message: "permission denied"}, models.StatusForbidden, ""},
		{"raised exception", &pq.Error{Code: "P0001", Message: "row locked"}, models.StatusProcedureError, ""},
		{"connection error", errors.New("connection reset"), models.StatusProcedureError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewDMLRepository(db, zap.NewNop())

			mock.ExpectExec(regexp.QuoteMeta(updateQuery)).WillReturnError(tt.err)

			err := repo.Update(context.Background(), models.DmlOperationArgs{
				TableName:      "parcel",
				EntityID:       "7",
				Claims:         testClaims(),
				SysValues:      map[string]string{"curr_user": "user"},
				BusinessValues: map[string]any{"name": nil},
			})

			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, services.StatusOf(err))
			assert.Equal(t, tt.wantConstraint, services.ConstraintOf(err))
			var pqErr *pq.Error
			if errors.As(tt.err, &pqErr) {
				assert.ErrorAs(t, err, &pqErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDMLRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDMLRepository(db, zap.NewNop())

	mock.ExpectExec(regexp.QuoteMeta(updateQuery)).
		WithArgs("parcel", "7", `"curr_user"=>"user"`, `"area"=>"12.5", "name"=>NULL`, pq.Array([]string{"role"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), models.DmlOperationArgs{
		TableName:      "parcel",
		EntityID:       "7",
		Claims:         testClaims(),
		SysValues:      map[string]string{"curr_user": "user"},
		BusinessValues: map[string]any{"name": nil, "area": "12.5"},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDMLRepository_Delete_PermissionDenied(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDMLRepository(db, zap.NewNop())
	id := "123e4567-e89b-12d3-a456-426655440000"

	mock.ExpectExec(regexp.QuoteMeta(deleteQuery)).
		WithArgs("parcel", id, `"curr_user"=>"user"`, pq.Array([]string{"role"})).
		WillReturnError(&pq.Error{Code: "42501", Message: "permission denied for table parcel"})

	err := repo.Delete(context.Background(), models.DmlOperationArgs{
		TableName: "parcel",
		EntityID:  id,
		Claims:    testClaims(),
		SysValues: map[string]string{"curr_user": "user"},
	})

	require.Error(t, err)
	var domainErr *services.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, models.StatusForbidden, domainErr.Status)
	assert.Empty(t, domainErr.Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDMLRepository_InvalidArgsNeverReachDatabase(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDMLRepository(db, zap.NewNop())
	ctx := context.Background()

	_, err := repo.Save(ctx, models.DmlOperationArgs{TableName: "parcel", EntityID: "1", SysValues: map[string]string{}, BusinessValues: map[string]any{}})
	assert.Equal(t, models.StatusInternalContractViolation, services.StatusOf(err))

	err = repo.Update(ctx, models.DmlOperationArgs{TableName: "parcel", SysValues: map[string]string{}, BusinessValues: map[string]any{}})
	assert.Equal(t, models.StatusInternalContractViolation, services.StatusOf(err))

	err = repo.Delete(ctx, models.DmlOperationArgs{TableName: "parcel", SysValues: map[string]string{}})
	assert.Equal(t, models.StatusInternalContractViolation, services.StatusOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDMLRepository_JoinsContextTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDMLRepository(db, zap.NewNop())
	txMgr := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"f_row_insert"}).AddRow("1"))
	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WillReturnError(&pq.Error{Code: "23502", Message: "null value"})
	mock.ExpectRollback()

	args := models.DmlOperationArgs{
		TableName:      "parcel",
		Claims:         testClaims(),
		SysValues:      map[string]string{"curr_user": "user"},
		BusinessValues: map[string]any{"name": "x"},
	}

	err := txMgr.InTransaction(context.Background(), func(ctx context.Context, _ repositories.Transaction) error {
		if _, err := repo.Save(ctx, args); err != nil {
			return err
		}
		_, err := repo.Save(ctx, args)
		return err
	})

	require.Error(t, err)
	assert.True(t, services.IsConstraintViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
