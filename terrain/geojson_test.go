package terrain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geoResult() *Result {
	return &Result{
		RunID:   "run-1",
		Lattice: smallLattice(4, 4),
		Points: []GridPoint{
			samplePoint(1, 2, 125),
			{Coord: Coord{0, 0}, Category: Unclassifiable, Row: 1},
			{Coord: Coord{2, 2}, Elevation: Feet(40), Category: 22, Origin: OriginOuterFill, Row: -1},
			{Coord: Coord{3, 3}, Elevation: Feet(90), Category: 24, Origin: OriginSample, Row: 2, Replaced: true},
			samplePoint(9, 9, 10), // outside the lattice
		},
	}
}

func TestToFeatureCollection(t *testing.T) {
	fc := ToFeatureCollection(geoResult())

	require.Len(t, fc.Features, 4)
	assert.Equal(t, geojson.BBox{0, 0, 4, 4}, fc.BBox)
	assert.Equal(t, "run-1", fc.ExtraMembers["run_id"])

	first := fc.Features[0]
	assert.Equal(t, orb.Point{1, 2}, first.Geometry)
	assert.Equal(t, "sample", first.Properties["origin"])
	assert.Equal(t, 125.0, first.Properties["elevation_ft"])
	assert.Equal(t, 25, first.Properties["category"])

	unknown := fc.Features[1]
	assert.Nil(t, unknown.Properties["elevation_ft"])
	assert.Nil(t, unknown.Properties["category"])

	assert.Equal(t, "outer-fill", fc.Features[2].Properties["origin"])
	assert.Equal(t, true, fc.Features[3].Properties["replaced"])
	_, ok := fc.Features[0].Properties["replaced"]
	assert.False(t, ok)
}

func TestSaveGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.geojson")
	require.NoError(t, SaveGeoJSON(path, geoResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "FeatureCollection", raw["type"])
	assert.Equal(t, "run-1", raw["run_id"])

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 4)
}
