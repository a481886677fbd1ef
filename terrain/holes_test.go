package terrain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternalHoleFiller_ReplacesDepression(t *testing.T) {
	l := smallLattice(3, 3)
	depression := samplePoint(1, 1, -10)
	depression.Row = 0
	g := NewSparseGrid([]GridPoint{
		depression,
		samplePoint(1, 2, 100), // N
		samplePoint(2, 1, 200), // E
		samplePoint(1, 0, 150), // S
		samplePoint(0, 1, 50),  // W
	})
	f := &InternalHoleFiller{Lattice: l, Table: DefaultThresholds()}

	require.Equal(t, 1, f.Pass(g))

	p, ok := g.Lookup(Coord{1, 1})
	require.True(t, ok)
	assert.Equal(t, 125.0, p.Elevation.Value)
	assert.Equal(t, DefaultThresholds().Classify(Feet(125)), p.Category)
	assert.True(t, p.Replaced)
	assert.Equal(t, 0, p.Row, "replaced in place")
	assert.Equal(t, 5, g.Len(), "no duplicate record")

	assert.Equal(t, 0, f.Pass(g))
}

func TestInternalHoleFiller_AbsentCellAppends(t *testing.T) {
	l := smallLattice(3, 3)
	g := NewSparseGrid([]GridPoint{
		samplePoint(1, 2, 10),
		samplePoint(2, 1, 10),
		samplePoint(1, 0, 10),
		samplePoint(0, 1, 10),
		samplePoint(0, 0, -30), // diagonals count whatever their sign
	})
	f := &InternalHoleFiller{Lattice: l, Table: DefaultThresholds()}

	require.Equal(t, 1, f.Pass(g))
	p, ok := g.Lookup(Coord{1, 1})
	require.True(t, ok)
	assert.Equal(t, OriginHoleFill, p.Origin)
	assert.Equal(t, 2.0, p.Elevation.Value)
	assert.Equal(t, 1, g.Added())
}

func TestInternalHoleFiller_RequiresPositiveCardinals(t *testing.T) {
	l := smallLattice(3, 3)
	tests := []struct {
		name  string
		north GridPoint
	}{
		{"zero", samplePoint(1, 2, 0)},
		{"negative", samplePoint(1, 2, -5)},
		{"unknown", GridPoint{Coord: Coord{1, 2}, Category: Unclassifiable, Row: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewSparseGrid([]GridPoint{
				tc.north,
				samplePoint(2, 1, 10),
				samplePoint(1, 0, 10),
				samplePoint(0, 1, 10),
			})
			f := &InternalHoleFiller{Lattice: l, Table: DefaultThresholds()}
			assert.Equal(t, 0, f.Pass(g))
		})
	}
}

func TestInternalHoleFiller_EdgeCellsNeverSurrounded(t *testing.T) {
	l := smallLattice(2, 1)
	g := NewSparseGrid([]GridPoint{samplePoint(0, 0, -1), samplePoint(1, 0, 10)})
	f := &InternalHoleFiller{Lattice: l, Table: DefaultThresholds()}
	assert.Equal(t, 0, f.Pass(g))
}

func TestInternalHoleFiller_UnknownSampleIsHole(t *testing.T) {
	l := smallLattice(3, 3)
	g := NewSparseGrid([]GridPoint{
		{Coord: Coord{1, 1}, Category: Unclassifiable, Row: 3},
		samplePoint(1, 2, 40),
		samplePoint(2, 1, 40),
		samplePoint(1, 0, 40),
		samplePoint(0, 1, 40),
	})
	f := &InternalHoleFiller{Lattice: l, Table: DefaultThresholds()}

	require.Equal(t, 1, f.Pass(g))
	p, _ := g.Lookup(Coord{1, 1})
	assert.True(t, p.Elevation.Valid)
	assert.Equal(t, 40.0, p.Elevation.Value)
	assert.True(t, p.Category.Valid())
}

func TestInternalHoleFiller_NeverOverwritesFills(t *testing.T) {
	l := smallLattice(3, 3)
	g := NewSparseGrid([]GridPoint{
		samplePoint(1, 2, 1),
		samplePoint(2, 1, 1),
		samplePoint(1, 0, 1),
		samplePoint(0, 1, 1),
		samplePoint(0, 0, -100),
		samplePoint(2, 0, -100),
		samplePoint(0, 2, -100),
		samplePoint(2, 2, -100),
	})
	f := &InternalHoleFiller{Lattice: l, Table: DefaultThresholds()}

	// The fill stays below zero, so the cell keeps looking like a hole.
	// The loop must still converge.
	total := f.Fill(g, nil)
	assert.Equal(t, 1, total)

	p, _ := g.Lookup(Coord{1, 1})
	assert.Equal(t, -49.5, p.Elevation.Value)
	assert.Equal(t, OriginHoleFill, p.Origin)
}

func TestInternalHoleFiller_FixpointProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := smallLattice(20, 20)
	table := DefaultThresholds()

	for trial := 0; trial < 20; trial++ {
		var points []GridPoint
		l.Walk(RowMajor, func(c Coord) {
			switch r := rng.Float64(); {
			case r < 0.6:
				points = append(points, samplePoint(c.Lon, c.Lat, 50+rng.Float64()*500))
			case r < 0.75:
				points = append(points, samplePoint(c.Lon, c.Lat, -rng.Float64()*20))
			}
		})
		g := NewSparseGrid(points)
		f := &InternalHoleFiller{Lattice: l, Table: table}
		f.Fill(g, nil)

		l.Walk(RowMajor, func(c Coord) {
			p, present := g.Lookup(c)
			if present && (p.Elevation.Positive() || p.Origin.Synthetic() || p.Replaced) {
				return
			}
			assert.False(t, f.surrounded(g, c), "trial %d: %s is still a surrounded hole", trial, c)
		})

		assert.Equal(t, 0, f.Pass(g), "idempotent after fixpoint")
		for _, p := range g.Points() {
			assert.Equal(t, table.Classify(p.Elevation), p.Category)
		}
	}
}
