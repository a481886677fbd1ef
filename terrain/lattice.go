package terrain

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// Lattice is the fixed rectangle of cells: XMin <= lon < XMax and
// YMin <= lat < YMax, stepping by CellSize degrees.
type Lattice struct {
	XMin     int `yaml:"xMin" json:"xMin"`
	XMax     int `yaml:"xMax" json:"xMax"`
	YMin     int `yaml:"yMin" json:"yMin"`
	YMax     int `yaml:"yMax" json:"yMax"`
	CellSize int `yaml:"cellSize" json:"cellSize"`
}

// DefaultLattice covers the globe at one degree
func DefaultLattice() Lattice {
	return Lattice{XMin: -180, XMax: 180, YMin: -90, YMax: 90, CellSize: 1}
}

// Validate rejects empty or misaligned domains
func (l Lattice) Validate() error {
	if l.CellSize < 1 {
		return fmt.Errorf("lattice.cellSize must be >= 1, got %d", l.CellSize)
	}
	if l.XMax <= l.XMin {
		return fmt.Errorf("lattice.xMax (%d) must be greater than xMin (%d)", l.XMax, l.XMin)
	}
	if l.YMax <= l.YMin {
		return fmt.Errorf("lattice.yMax (%d) must be greater than yMin (%d)", l.YMax, l.YMin)
	}
	return nil
}

// Columns is the number of cells along longitude
func (l Lattice) Columns() int {
	return (l.XMax - l.XMin + l.CellSize - 1) / l.CellSize
}

// Rows is the number of cells along latitude
func (l Lattice) Rows() int {
	return (l.YMax - l.YMin + l.CellSize - 1) / l.CellSize
}

// Contains reports whether c is a cell of the lattice
func (l Lattice) Contains(c Coord) bool {
	if c.Lon < l.XMin || c.Lon >= l.XMax || c.Lat < l.YMin || c.Lat >= l.YMax {
		return false
	}
	return (c.Lon-l.XMin)%l.CellSize == 0 && (c.Lat-l.YMin)%l.CellSize == 0
}

// Index returns the column and row of c, counting from XMin and YMin
func (l Lattice) Index(c Coord) (col, row int) {
	return (c.Lon - l.XMin) / l.CellSize, (c.Lat - l.YMin) / l.CellSize
}

// Snap maps a position in degrees onto the nearest lattice line, rounding
// half to even. The result is not clamped to the domain.
func (l Lattice) Snap(lon, lat float64) Coord {
	step := float64(l.CellSize)
	return Coord{
		Lon: l.XMin + int(math.RoundToEven((lon-float64(l.XMin))/step))*l.CellSize,
		Lat: l.YMin + int(math.RoundToEven((lat-float64(l.YMin))/step))*l.CellSize,
	}
}

// Bound returns the domain as an orb bound in lon/lat
func (l Lattice) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(l.XMin), float64(l.YMin)},
		Max: orb.Point{float64(l.XMax), float64(l.YMax)},
	}
}

// Offset is a neighbor displacement in cells
type Offset struct {
	DLon, DLat int
}

// outerNeighborhood is the Moore neighborhood in the order the outer gap
// filler sums it: the row above (north), the same row, the row below.
var outerNeighborhood = []Offset{
	{-1, 1}, {0, 1}, {1, 1},
	{-1, 0}, {1, 0},
	{-1, -1}, {0, -1}, {1, -1},
}

// holeNeighborhood is the Moore neighborhood in the order the hole filler
// sums it: longitude offset outer, latitude offset inner.
var holeNeighborhood = []Offset{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// cardinalNeighborhood is N, E, S, W
var cardinalNeighborhood = []Offset{
	{0, 1}, {1, 0}, {0, -1}, {-1, 0},
}

// Neighbor returns the coordinate displaced from c by o cells
func (l Lattice) Neighbor(c Coord, o Offset) Coord {
	return Coord{Lon: c.Lon + o.DLon*l.CellSize, Lat: c.Lat + o.DLat*l.CellSize}
}

// TraversalOrder fixes the raster order of a fill pass. Cells filled earlier
// in a pass are visible to cells visited later in the same pass, so the
// order is part of the result.
type TraversalOrder int

const (
	// RowMajor visits ascending longitude within ascending latitude
	RowMajor TraversalOrder = iota
	// ColumnMajor visits ascending latitude within ascending longitude
	ColumnMajor
)

func (o TraversalOrder) String() string {
	switch o {
	case RowMajor:
		return "row-major"
	case ColumnMajor:
		return "column-major"
	}
	return fmt.Sprintf("TraversalOrder(%d)", int(o))
}

// ParseTraversalOrder accepts "row-major" and "column-major"; empty means row-major
func ParseTraversalOrder(s string) (TraversalOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "row-major", "rowmajor":
		return RowMajor, nil
	case "column-major", "columnmajor":
		return ColumnMajor, nil
	}
	return RowMajor, fmt.Errorf("unknown traversal order %q", s)
}

// MarshalYAML writes the order by name
func (o TraversalOrder) MarshalYAML() (interface{}, error) {
	return o.String(), nil
}

// UnmarshalYAML reads the order by name
func (o *TraversalOrder) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseTraversalOrder(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Walk calls fn for every cell of the lattice in the given order
func (l Lattice) Walk(order TraversalOrder, fn func(Coord)) {
	if order == ColumnMajor {
		for x := l.XMin; x < l.XMax; x += l.CellSize {
			for y := l.YMin; y < l.YMax; y += l.CellSize {
				fn(Coord{Lon: x, Lat: y})
			}
		}
		return
	}
	for y := l.YMin; y < l.YMax; y += l.CellSize {
		for x := l.XMin; x < l.XMax; x += l.CellSize {
			fn(Coord{Lon: x, Lat: y})
		}
	}
}
