package mapper

import (
	"fmt"
	"strconv"
	"time"

	"github.com/upb/entitybus/models"
)

// Mapper converts one entity type to and from the flat column map
type Mapper[E any] interface {
	// ToMap flattens entity to column name -> textual value (nil for NULL).
	// The primary key column is included when the entity has one.
	ToMap(entity E) (map[string]any, error)

	// FromRow materializes an entity from a row read from the database
	FromRow(row map[string]any) (E, error)
}

// TextValue maps the empty string to NULL
func TextValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func StringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func IntValue(v *int64) any {
	if v == nil {
		return nil
	}
	return strconv.FormatInt(*v, 10)
}

func FloatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return formatFloat(*v)
}

func BoolValue(v *bool) any {
	if v == nil {
		return nil
	}
	return strconv.FormatBool(*v)
}

func TimeValue(v *time.Time) any {
	if v == nil {
		return nil
	}
	return FormatTimestamp(*v)
}

func PointValue(v *models.Point) any {
	if v == nil {
		return nil
	}
	return FormatPoint(*v)
}

func LineStringValue(v *models.LineString) any {
	if v == nil {
		return nil
	}
	return FormatLineString(*v)
}

func PolygonValue(v *models.Polygon) any {
	if v == nil {
		return nil
	}
	return FormatPolygon(*v)
}

func FileValue(v *models.FileRef) any {
	if v == nil {
		return nil
	}
	return FormatFileRef(*v)
}

func FilesValue(v []models.FileRef) any {
	if len(v) == 0 {
		return nil
	}
	return FormatFileRefs(v)
}

// RowReader decodes typed values from a row. The first decoding error is
// kept and returned by Err; later calls after an error return zero values.
type RowReader struct {
	row map[string]any
	err error
}

// NewRowReader creates a reader over row
func NewRowReader(row map[string]any) *RowReader {
	return &RowReader{row: row}
}

// Err returns the first decoding error
func (r *RowReader) Err() error {
	return r.err
}

func (r *RowReader) text(col string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	switch v := r.row[col].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return fmt.Sprint(v), true
	}
}

func (r *RowReader) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: %w", col, err)
	}
}

func (r *RowReader) String(col string) string {
	s, _ := r.text(col)
	return s
}

func (r *RowReader) OptionalString(col string) *string {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	return &s
}

func (r *RowReader) Int(col string) *int64 {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &v
}

func (r *RowReader) Float(col string) *float64 {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &v
}

// Bool accepts both Go ("true") and PostgreSQL ("t") spellings
func (r *RowReader) Bool(col string) *bool {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &v
}

func (r *RowReader) Time(col string) *time.Time {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := ParseTimestamp(s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &v
}

func (r *RowReader) Point(col string) *models.Point {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := ParsePoint(s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &v
}

func (r *RowReader) LineString(col string) *models.LineString {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := ParseLineString(s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &v
}

func (r *RowReader) Polygon(col string) *models.Polygon {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := ParsePolygon(s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &v
}

func (r *RowReader) File(col string) *models.FileRef {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := ParseFileRef(s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &v
}

func (r *RowReader) Files(col string) []models.FileRef {
	s, ok := r.text(col)
	if !ok {
		return nil
	}
	v, err := ParseFileRefs(s)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return v
}
