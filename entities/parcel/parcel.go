// Package parcel is the land parcel entity: its columns, mapper and search
// criteria, wired into the generic handler.
package parcel

import (
	"context"
	"strings"
	"time"

	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services"
	"github.com/upb/entitybus/services/crud"
	"github.com/upb/entitybus/services/mapper"
	"github.com/upb/entitybus/utils"
	"go.uber.org/zap"
)

// Entity is the name used in topics and audit events
const Entity = "parcel"

// Parcel is one cadastral land parcel
type Parcel struct {
	ID           string             `json:"id,omitempty"`
	Number       string             `json:"number,omitempty" validate:"required,max=64"`
	Name         string             `json:"name,omitempty"`
	AreaSqm      *float64           `json:"area_sqm,omitempty" validate:"omitempty,gte=0"`
	FloorCount   *int64             `json:"floor_count,omitempty"`
	Active       *bool              `json:"active,omitempty"`
	RegisteredAt *time.Time         `json:"registered_at,omitempty"`
	Centroid     *models.Point      `json:"centroid,omitempty"`
	Frontage     *models.LineString `json:"frontage,omitempty"`
	Boundary     *models.Polygon    `json:"boundary,omitempty"`
	Deed         *models.FileRef    `json:"deed,omitempty"`
	Attachments  []models.FileRef   `json:"attachments,omitempty"`
}

// Criteria selects parcels. Number matches exactly, Name by case-insensitive prefix.
type Criteria struct {
	Number string `json:"number,omitempty" validate:"omitempty,max=64"`
	Name   string `json:"name,omitempty"`
	models.Paging
}

// Table describes the parcel table
var Table = models.TableDescriptor{
	Table:    "parcel",
	PKColumn: "id",
	Columns: []models.Column{
		{Name: "id", Kind: models.ColumnUUID},
		{Name: "number", Kind: models.ColumnText},
		{Name: "name", Kind: models.ColumnText},
		{Name: "area_sqm", Kind: models.ColumnNumeric},
		{Name: "floor_count", Kind: models.ColumnInteger},
		{Name: "active", Kind: models.ColumnBoolean},
		{Name: "registered_at", Kind: models.ColumnTimestamp},
		{Name: "centroid", Kind: models.ColumnPoint},
		{Name: "frontage", Kind: models.ColumnLineString},
		{Name: "boundary", Kind: models.ColumnPolygon},
		{Name: "deed", Kind: models.ColumnFile},
		{Name: "attachments", Kind: models.ColumnFileArray},
	},
	MaxSearchLimit: 500,
}

// Mapper converts parcels to and from column maps
type Mapper struct{}

func (Mapper) ToMap(p Parcel) (map[string]any, error) {
	return map[string]any{
		"id":            mapper.TextValue(p.ID),
		"number":        mapper.TextValue(p.Number),
		"name":          mapper.TextValue(p.Name),
		"area_sqm":      mapper.FloatValue(p.AreaSqm),
		"floor_count":   mapper.IntValue(p.FloorCount),
		"active":        mapper.BoolValue(p.Active),
		"registered_at": mapper.TimeValue(p.RegisteredAt),
		"centroid":      mapper.PointValue(p.Centroid),
		"frontage":      mapper.LineStringValue(p.Frontage),
		"boundary":      mapper.PolygonValue(p.Boundary),
		"deed":          mapper.FileValue(p.Deed),
		"attachments":   mapper.FilesValue(p.Attachments),
	}, nil
}

func (Mapper) FromRow(row map[string]any) (Parcel, error) {
	r := mapper.NewRowReader(row)
	p := Parcel{
		ID:           r.String("id"),
		Number:       r.String("number"),
		Name:         r.String("name"),
		AreaSqm:      r.Float("area_sqm"),
		FloorCount:   r.Int("floor_count"),
		Active:       r.Bool("active"),
		RegisteredAt: r.Time("registered_at"),
		Centroid:     r.Point("centroid"),
		Frontage:     r.LineString("frontage"),
		Boundary:     r.Polygon("boundary"),
		Deed:         r.File("deed"),
		Attachments:  r.Files("attachments"),
	}
	return p, r.Err()
}

// Search builds queries from Criteria
type Search struct{}

func (Search) Conditions(c Criteria) []repositories.Condition {
	var conds []repositories.Condition
	if c.Number != "" {
		conds = append(conds, repositories.Condition{Column: "number", Operator: repositories.OpEquals, Value: normalizeNumber(c.Number)})
	}
	if c.Name != "" {
		conds = append(conds, repositories.Condition{Column: "name", Operator: repositories.OpPrefix, Value: c.Name})
	}
	return conds
}

func (Search) Paging(c Criteria) models.Paging { return c.Paging }

// normalizeNumber upper-cases parcel numbers and strips surrounding blanks
func normalizeNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}

// Preprocess validates a new parcel and normalizes its number
func Preprocess(_ context.Context, _ crud.Call, p *Parcel) error {
	p.Number = normalizeNumber(p.Number)
	if err := utils.ValidateStruct(p); err != nil {
		return services.ContractViolation(err.Error())
	}
	return nil
}

// NewHandler creates the parcel handler over repos
func NewHandler(repos *repositories.Repositories, logger *zap.Logger) *crud.Handler[Parcel, Criteria] {
	return crud.NewHandler(crud.Config[Parcel, Criteria]{
		Table:      Table,
		Mapper:     Mapper{},
		Search:     Search{},
		DML:        repos.DML,
		Access:     repos.Access,
		Reader:     repos.Reader,
		Preprocess: Preprocess,
		Logger:     logger,
	})
}
