package terrain

import (
	"errors"
	"fmt"
)

var (
	// ErrCoordinateExists is returned when appending over a present coordinate
	ErrCoordinateExists = errors.New("coordinate already present")
	// ErrNotReplaceable is returned when replacing a point that is absent,
	// fill-derived, or already replaced
	ErrNotReplaceable = errors.New("coordinate cannot be replaced")
)

// SparseGrid maps lattice coordinates to known points. It is owned by a
// single reconstruction run and grows only by Append, plus the one-time
// in-place Replace of an original sample by the hole filler.
type SparseGrid struct {
	index  map[Coord]int
	points []GridPoint
	added  int
}

// NewSparseGrid builds a grid from points. When coordinates repeat, the
// last point wins but keeps the position of the first occurrence.
func NewSparseGrid(points []GridPoint) *SparseGrid {
	g := &SparseGrid{
		index:  make(map[Coord]int, len(points)),
		points: make([]GridPoint, 0, len(points)),
	}
	for _, p := range points {
		if i, ok := g.index[p.Coord]; ok {
			g.points[i] = p
			continue
		}
		g.index[p.Coord] = len(g.points)
		g.points = append(g.points, p)
	}
	return g
}

// Lookup returns the point at c, if any
func (g *SparseGrid) Lookup(c Coord) (GridPoint, bool) {
	i, ok := g.index[c]
	if !ok {
		return GridPoint{}, false
	}
	return g.points[i], true
}

// Known returns the elevation at c when c is present with a valid elevation
func (g *SparseGrid) Known(c Coord) (float64, bool) {
	p, ok := g.Lookup(c)
	if !ok || !p.Elevation.Valid {
		return 0, false
	}
	return p.Elevation.Value, true
}

// Append adds a new point. It fails if the coordinate is already present.
func (g *SparseGrid) Append(p GridPoint) error {
	if _, ok := g.index[p.Coord]; ok {
		return fmt.Errorf("append %s: %w", p.Coord, ErrCoordinateExists)
	}
	g.index[p.Coord] = len(g.points)
	g.points = append(g.points, p)
	g.added++
	return nil
}

// Replace rewrites the elevation and category of an original sample. The
// point keeps its output row and is marked Replaced, so it can be replaced
// at most once.
func (g *SparseGrid) Replace(p GridPoint) error {
	i, ok := g.index[p.Coord]
	if !ok {
		return fmt.Errorf("replace %s: %w", p.Coord, ErrNotReplaceable)
	}
	old := g.points[i]
	if old.Origin.Synthetic() || old.Replaced {
		return fmt.Errorf("replace %s (%s): %w", p.Coord, old.Origin, ErrNotReplaceable)
	}
	old.Elevation = p.Elevation
	old.Category = p.Category
	old.Replaced = true
	g.points[i] = old
	return nil
}

// Points returns the points in insertion order
func (g *SparseGrid) Points() []GridPoint {
	out := make([]GridPoint, len(g.points))
	copy(out, g.points)
	return out
}

// Len is the number of distinct coordinates
func (g *SparseGrid) Len() int {
	return len(g.points)
}

// Added is the number of points appended since construction
func (g *SparseGrid) Added() int {
	return g.added
}
