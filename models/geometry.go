package models

// DefaultSRID is WGS 84
const DefaultSRID = 4326

// Coordinate is one x/y vertex
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point is a single located vertex
type Point struct {
	SRID int `json:"srid"`
	Coordinate
}

// LineString is an open sequence of vertices
type LineString struct {
	SRID   int          `json:"srid"`
	Points []Coordinate `json:"points"`
}

// Polygon is a list of closed rings, the first being the exterior
type Polygon struct {
	SRID  int            `json:"srid"`
	Rings [][]Coordinate `json:"rings"`
}

// FileRef points at a stored file by id and content checksum
type FileRef struct {
	ID       string `json:"id"`
	Checksum string `json:"checksum"`
}
