package mapper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/upb/entitybus/models"
)

// TimestampLayout is the millisecond ISO-8601 form used for every timestamp column
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp encodes t with TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp decodes a timestamp column. RFC 3339 input without
// milliseconds is accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err == nil {
		return t, nil
	}
	if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
		return t2, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatCoords(coords []models.Coordinate) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = formatFloat(c.X) + " " + formatFloat(c.Y)
	}
	return strings.Join(parts, ",")
}

func ewkt(srid int, body string) string {
	if srid == 0 {
		srid = models.DefaultSRID
	}
	return fmt.Sprintf("SRID=%d;%s", srid, body)
}

// FormatPoint encodes p as EWKT, e.g. SRID=4326;POINT(13.4 52.5)
func FormatPoint(p models.Point) string {
	return ewkt(p.SRID, "POINT("+formatCoords([]models.Coordinate{p.Coordinate})+")")
}

// FormatLineString encodes l as EWKT
func FormatLineString(l models.LineString) string {
	return ewkt(l.SRID, "LINESTRING("+formatCoords(l.Points)+")")
}

// FormatPolygon encodes p as EWKT
func FormatPolygon(p models.Polygon) string {
	rings := make([]string, len(p.Rings))
	for i, r := range p.Rings {
		rings[i] = "(" + formatCoords(r) + ")"
	}
	return ewkt(p.SRID, "POLYGON("+strings.Join(rings, ",")+")")
}

// splitEWKT separates "SRID=n;TYPE(body)" into srid and body after checking the type tag
func splitEWKT(s, geomType string) (int, string, error) {
	srid := models.DefaultSRID
	rest := s
	if strings.HasPrefix(strings.ToUpper(rest), "SRID=") {
		head, tail, ok := strings.Cut(rest, ";")
		if !ok {
			return 0, "", fmt.Errorf("invalid EWKT %q: missing ';'", s)
		}
		n, err := strconv.Atoi(head[len("SRID="):])
		if err != nil {
			return 0, "", fmt.Errorf("invalid EWKT srid in %q: %w", s, err)
		}
		srid = n
		rest = tail
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(strings.ToUpper(rest), geomType) {
		return 0, "", fmt.Errorf("invalid EWKT %q: expected %s", s, geomType)
	}
	rest = strings.TrimSpace(rest[len(geomType):])
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return 0, "", fmt.Errorf("invalid EWKT %q: unbalanced parentheses", s)
	}
	return srid, rest[1 : len(rest)-1], nil
}

func parseCoords(s string) ([]models.Coordinate, error) {
	parts := strings.Split(s, ",")
	coords := make([]models.Coordinate, 0, len(parts))
	for _, p := range parts {
		xy := strings.Fields(p)
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid coordinate %q", p)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", p, err)
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", p, err)
		}
		coords = append(coords, models.Coordinate{X: x, Y: y})
	}
	return coords, nil
}

// ParsePoint decodes an EWKT point
func ParsePoint(s string) (models.Point, error) {
	srid, body, err := splitEWKT(s, "POINT")
	if err != nil {
		return models.Point{}, err
	}
	coords, err := parseCoords(body)
	if err != nil {
		return models.Point{}, err
	}
	if len(coords) != 1 {
		return models.Point{}, fmt.Errorf("invalid point %q", s)
	}
	return models.Point{SRID: srid, Coordinate: coords[0]}, nil
}

// ParseLineString decodes an EWKT line string
func ParseLineString(s string) (models.LineString, error) {
	srid, body, err := splitEWKT(s, "LINESTRING")
	if err != nil {
		return models.LineString{}, err
	}
	coords, err := parseCoords(body)
	if err != nil {
		return models.LineString{}, err
	}
	return models.LineString{SRID: srid, Points: coords}, nil
}

// ParsePolygon decodes an EWKT polygon
func ParsePolygon(s string) (models.Polygon, error) {
	srid, body, err := splitEWKT(s, "POLYGON")
	if err != nil {
		return models.Polygon{}, err
	}

	var rings [][]models.Coordinate
	for body != "" {
		body = strings.TrimLeft(body, ", ")
		if !strings.HasPrefix(body, "(") {
			return models.Polygon{}, fmt.Errorf("invalid polygon %q", s)
		}
		end := strings.IndexByte(body, ')')
		if end < 0 {
			return models.Polygon{}, fmt.Errorf("invalid polygon %q: unclosed ring", s)
		}
		coords, err := parseCoords(body[1:end])
		if err != nil {
			return models.Polygon{}, err
		}
		rings = append(rings, coords)
		body = body[end+1:]
	}
	return models.Polygon{SRID: srid, Rings: rings}, nil
}

// FormatFileRef encodes the composite as (id,checksum). Fields are quoted
// the way PostgreSQL record output quotes them.
func FormatFileRef(f models.FileRef) string {
	return "(" + quoteRecordField(f.ID) + "," + quoteRecordField(f.Checksum) + ")"
}

func quoteRecordField(s string) string {
	if !strings.ContainsAny(s, ",\"()\\ \t\n\r") {
		return s
	}
	r := strings.NewReplacer(`"`, `""`, `\`, `\\`)
	return `"` + r.Replace(s) + `"`
}

// ParseFileRef decodes (id,checksum). Quoted fields are unquoted.
func ParseFileRef(s string) (models.FileRef, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return models.FileRef{}, fmt.Errorf("invalid file reference %q", s)
	}
	fields, err := splitQuoted(s[1:len(s)-1], ',')
	if err != nil {
		return models.FileRef{}, fmt.Errorf("invalid file reference %q: %w", s, err)
	}
	if len(fields) != 2 {
		return models.FileRef{}, fmt.Errorf("invalid file reference %q: expected 2 fields", s)
	}
	return models.FileRef{ID: fields[0], Checksum: fields[1]}, nil
}

// FormatFileRefs encodes an array of file references, e.g. {"(id1,sum1)","(id2,sum2)"}
func FormatFileRefs(refs []models.FileRef) string {
	parts := make([]string, len(refs))
	for i, f := range refs {
		parts[i] = quoteElement(FormatFileRef(f))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ParseFileRefs decodes an array of file references. "{}" yields nil.
func ParseFileRefs(s string) ([]models.FileRef, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("invalid file reference array %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return nil, nil
	}
	elems, err := splitQuoted(body, ',')
	if err != nil {
		return nil, fmt.Errorf("invalid file reference array %q: %w", s, err)
	}
	refs := make([]models.FileRef, 0, len(elems))
	for _, e := range elems {
		f, err := ParseFileRef(e)
		if err != nil {
			return nil, err
		}
		refs = append(refs, f)
	}
	return refs, nil
}

func quoteElement(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// splitQuoted splits s on sep, honouring double-quoted sections with
// backslash escapes and doubled quotes as produced by PostgreSQL array and
// record output.
func splitQuoted(s string, sep byte) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("dangling escape")
			}
			i++
			cur.WriteByte(s[i])
		case inQuote && c == '"' && i+1 < len(s) && s[i+1] == '"':
			i++
			cur.WriteByte('"')
		case c == '"':
			inQuote = !inQuote
		case c == sep && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	return append(out, cur.String()), nil
}
