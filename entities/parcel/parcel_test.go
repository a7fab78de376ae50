package parcel

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/repositories/postgres"
	"github.com/upb/entitybus/services"
	"github.com/upb/entitybus/services/crud"
	"go.uber.org/zap"
)

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }
func boolPtr(v bool) *bool          { return &v }

func TestMapper_RoundTrip(t *testing.T) {
	registered := time.Date(2024, 3, 1, 8, 30, 0, 125_000_000, time.UTC)
	in := Parcel{
		ID:           "3f1c",
		Number:       "P-17",
		Name:         "North field",
		AreaSqm:      float64Ptr(1250.75),
		FloorCount:   int64Ptr(2),
		Active:       boolPtr(true),
		RegisteredAt: &registered,
		Centroid:     &models.Point{SRID: 4326, Coordinate: models.Coordinate{X: 13.4, Y: 52.5}},
		Frontage:     &models.LineString{SRID: 4326, Points: []models.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}}},
		Boundary: &models.Polygon{SRID: 4326, Rings: [][]models.Coordinate{
			{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}},
		}},
		Deed:        &models.FileRef{ID: "deed-1", Checksum: "abc"},
		Attachments: []models.FileRef{{ID: "a", Checksum: "1"}, {ID: "b", Checksum: "2"}},
	}

	values, err := Mapper{}.ToMap(in)
	require.NoError(t, err)
	assert.Len(t, values, len(Table.Columns))
	assert.Equal(t, "2024-03-01T08:30:00.125Z", values["registered_at"])
	assert.Equal(t, "SRID=4326;POINT(13.4 52.5)", values["centroid"])

	out, err := Mapper{}.FromRow(values)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.AreaSqm, out.AreaSqm)
	assert.Equal(t, in.Boundary, out.Boundary)
	assert.Equal(t, in.Attachments, out.Attachments)
	assert.True(t, in.RegisteredAt.Equal(*out.RegisteredAt))
}

func TestMapper_FromRowRejectsBadGeometry(t *testing.T) {
	_, err := Mapper{}.FromRow(map[string]any{"id": "1", "centroid": "POINT(1)"})

	assert.ErrorContains(t, err, "centroid")
}

func TestSearch_Conditions(t *testing.T) {
	conds := Search{}.Conditions(Criteria{Number: " p-17 ", Name: "north"})

	assert.Equal(t, []repositories.Condition{
		{Column: "number", Operator: repositories.OpEquals, Value: "P-17"},
		{Column: "name", Operator: repositories.OpPrefix, Value: "north"},
	}, conds)
	assert.Empty(t, Search{}.Conditions(Criteria{}))
}

func TestPreprocess(t *testing.T) {
	p := &Parcel{Number: "  p-9 "}
	require.NoError(t, Preprocess(context.Background(), crud.Call{}, p))
	assert.Equal(t, "P-9", p.Number)

	err := Preprocess(context.Background(), crud.Call{}, &Parcel{Name: "no number"})
	assert.Equal(t, models.StatusInternalContractViolation, services.StatusOf(err))

	err = Preprocess(context.Background(), crud.Call{}, &Parcel{Number: "P-1", AreaSqm: float64Ptr(-1)})
	assert.Equal(t, models.StatusInternalContractViolation, services.StatusOf(err))
}

func TestHandler_CreateEncodesParcel(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repos := postgres.NewRepositoryFactoryFromDB(postgres.WrapDB(sqlDB, zap.NewNop()), zap.NewNop()).NewRepositories()
	handler := NewHandler(repos, zap.NewNop())

	business := `"active"=>NULL, "area_sqm"=>NULL, "attachments"=>NULL, "boundary"=>NULL, "centroid"=>NULL, ` +
		`"deed"=>NULL, "floor_count"=>NULL, "frontage"=>NULL, "name"=>"North", "number"=>"P-1", "registered_at"=>NULL`

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT f_row_insert FROM f_row_insert($1, $2::hstore, $3::hstore, $4::text[])`)).
		WithArgs("parcel", sqlmock.AnyArg(), business, pq.Array([]string{"clerk"})).
		WillReturnRows(sqlmock.NewRows([]string{"f_row_insert"}).AddRow("p-100"))

	id, err := handler.Create(context.Background(), crud.Call{
		Claims: models.Claims{UserID: "u-1", Roles: []string{"clerk"}},
	}, Parcel{ID: "ignored", Number: " p-1", Name: "North"})

	require.NoError(t, err)
	assert.Equal(t, "p-100", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
