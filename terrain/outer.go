package terrain

// OuterMinNeighbors is the number of known Moore neighbors an empty cell
// needs before the outer gap filler will interpolate it
const OuterMinNeighbors = 3

// PassFunc observes the count added by each pass of a fill loop
type PassFunc func(pass, added int)

// OuterGapFiller fills empty cells from the mean of their known Moore
// neighbors, growing the known area inward like a wavefront.
type OuterGapFiller struct {
	Lattice Lattice
	Table   ThresholdTable
	Order   TraversalOrder
}

// Pass makes one sweep over the lattice and returns the number of points
// added. Cells filled during the sweep count as known for later cells.
func (f *OuterGapFiller) Pass(g *SparseGrid) int {
	added := 0
	f.Lattice.Walk(f.Order, func(c Coord) {
		if _, ok := g.Lookup(c); ok {
			return
		}
		sum, n := 0.0, 0
		for _, o := range outerNeighborhood {
			nc := f.Lattice.Neighbor(c, o)
			if !f.Lattice.Contains(nc) {
				continue
			}
			if v, ok := g.Known(nc); ok {
				sum += v
				n++
			}
		}
		if n < OuterMinNeighbors {
			return
		}
		elev := Feet(sum / float64(n))
		p := GridPoint{
			Coord:     c,
			Elevation: elev,
			Category:  f.Table.Classify(elev),
			Origin:    OriginOuterFill,
			Row:       -1,
		}
		// c was checked absent above, so Append cannot fail
		if err := g.Append(p); err == nil {
			added++
		}
	})
	return added
}

// Fill repeats Pass until it adds nothing and returns the total added
func (f *OuterGapFiller) Fill(g *SparseGrid, onPass PassFunc) int {
	return fixpoint(func() int { return f.Pass(g) }, onPass)
}

// fixpoint runs pass until it returns zero, reporting every pass including
// the final empty one
func fixpoint(pass func() int, onPass PassFunc) int {
	total := 0
	for i := 1; ; i++ {
		added := pass()
		total += added
		if onPass != nil {
			onPass(i, added)
		}
		if added == 0 {
			return total
		}
	}
}
