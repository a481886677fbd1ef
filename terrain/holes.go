package terrain

// HoleMinNeighbors is the number of known Moore neighbors a hole needs.
// The cardinal condition already implies four.
const HoleMinNeighbors = 1

// InternalHoleFiller fills depressions whose four cardinal neighbors are
// all known land (> 0). A hole is an empty cell, or an original sample
// with an unknown or non-positive elevation.
type InternalHoleFiller struct {
	Lattice Lattice
	Table   ThresholdTable
	Order   TraversalOrder
}

// isHole reports whether c may be filled: absent, or an original sample
// that is not land and has not been rewritten yet. Fill-derived points are
// never overwritten.
func isHole(g *SparseGrid, c Coord) (present bool, ok bool) {
	p, present := g.Lookup(c)
	if !present {
		return false, true
	}
	if p.Elevation.Positive() || p.Origin.Synthetic() || p.Replaced {
		return true, false
	}
	return true, true
}

// surrounded reports whether every cardinal neighbor of c is known and > 0
func (f *InternalHoleFiller) surrounded(g *SparseGrid, c Coord) bool {
	for _, o := range cardinalNeighborhood {
		nc := f.Lattice.Neighbor(c, o)
		if !f.Lattice.Contains(nc) {
			return false
		}
		v, ok := g.Known(nc)
		if !ok || v <= 0 {
			return false
		}
	}
	return true
}

// Pass makes one sweep and returns the number of cells filled, whether
// appended or replaced in place
func (f *InternalHoleFiller) Pass(g *SparseGrid) int {
	filled := 0
	f.Lattice.Walk(f.Order, func(c Coord) {
		present, ok := isHole(g, c)
		if !ok || !f.surrounded(g, c) {
			return
		}

		// every known neighbor contributes, whatever its sign
		sum, n := 0.0, 0
		for _, o := range holeNeighborhood {
			nc := f.Lattice.Neighbor(c, o)
			if !f.Lattice.Contains(nc) {
				continue
			}
			if v, ok := g.Known(nc); ok {
				sum += v
				n++
			}
		}
		if n < HoleMinNeighbors {
			return
		}

		elev := Feet(sum / float64(n))
		p := GridPoint{
			Coord:     c,
			Elevation: elev,
			Category:  f.Table.Classify(elev),
			Origin:    OriginHoleFill,
			Row:       -1,
		}
		var err error
		if present {
			err = g.Replace(p)
		} else {
			err = g.Append(p)
		}
		if err == nil {
			filled++
		}
	})
	return filled
}

// Fill repeats Pass until it fills nothing and returns the total filled
func (f *InternalHoleFiller) Fill(g *SparseGrid, onPass PassFunc) int {
	return fixpoint(func() int { return f.Pass(g) }, onPass)
}
