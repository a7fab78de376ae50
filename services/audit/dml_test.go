package audit

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories/postgres"
	"github.com/upb/entitybus/services"
	"go.uber.org/zap"
)

func newAuditedPostgresDML(t *testing.T) (*AuditedDML, sqlmock.Sqlmock, *recorder) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	rec := &recorder{}
	repo := postgres.NewDMLRepository(postgres.WrapDB(sqlDB, zap.NewNop()), zap.NewNop())
	return NewAuditedDML(repo, NewInterceptor(rec, zap.NewNop())), mock, rec
}

var insertArgs = models.DmlOperationArgs{
	TableName:      "note",
	Claims:         models.Claims{UserID: "user", Roles: []string{"role"}},
	SysValues:      map[string]string{"curr_user": "user"},
	BusinessValues: map[string]any{"title": "t"},
}

func TestAuditedDML_EmptyInsertResult(t *testing.T) {
	dml, mock, rec := newAuditedPostgresDML(t)

	mock.ExpectQuery(`SELECT f_row_insert FROM f_row_insert`).
		WillReturnRows(sqlmock.NewRows([]string{"f_row_insert"}))

	id, err := dml.Save(context.Background(), insertArgs)

	require.Error(t, err)
	assert.Empty(t, id)
	assert.Equal(t, models.StatusProcedureError, services.StatusOf(err))
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditStepBefore, rec.events[0].Step)
	assert.Equal(t, models.AuditActionCreate, rec.events[0].Action)
	assert.Equal(t, []string{"title"}, rec.events[0].Fields)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditedDML_InsertRecordsGeneratedID(t *testing.T) {
	dml, mock, rec := newAuditedPostgresDML(t)

	mock.ExpectQuery(`SELECT f_row_insert FROM f_row_insert`).
		WillReturnRows(sqlmock.NewRows([]string{"f_row_insert"}).AddRow("n-7"))

	id, err := dml.Save(context.Background(), insertArgs)

	require.NoError(t, err)
	assert.Equal(t, "n-7", id)
	assert.Equal(t, []models.AuditStep{models.AuditStepBefore, models.AuditStepAfter}, rec.steps())
	assert.Empty(t, rec.events[0].EntityID)
	assert.Equal(t, "n-7", rec.events[1].EntityID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
