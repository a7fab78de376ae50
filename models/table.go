package models

// ColumnKind selects how a column is encoded in the flat value map and read back
type ColumnKind string

const (
	ColumnText       ColumnKind = "text"
	ColumnInteger    ColumnKind = "integer"
	ColumnNumeric    ColumnKind = "numeric"
	ColumnBoolean    ColumnKind = "boolean"
	ColumnUUID       ColumnKind = "uuid"
	ColumnTimestamp  ColumnKind = "timestamp"
	ColumnPoint      ColumnKind = "point"
	ColumnLineString ColumnKind = "linestring"
	ColumnPolygon    ColumnKind = "polygon"
	ColumnFile       ColumnKind = "file"
	ColumnFileArray  ColumnKind = "file_array"
)

// IsGeometry reports whether values of this kind are EWKT geometries
func (k ColumnKind) IsGeometry() bool {
	return k == ColumnPoint || k == ColumnLineString || k == ColumnPolygon
}

// Column is one persisted column of an entity table
type Column struct {
	Name string
	Kind ColumnKind
}

// TableDescriptor describes the table an entity handler works on
type TableDescriptor struct {
	Table    string
	PKColumn string
	Columns  []Column

	// MaxSearchLimit clamps caller-supplied search limits. Zero means no cap.
	MaxSearchLimit int
}

// Fields lists the persisted column names in declaration order
func (t TableDescriptor) Fields() []string {
	fields := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		fields = append(fields, c.Name)
	}
	return fields
}

// Column looks up a column by name
func (t TableDescriptor) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
