package terrain

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ToFeatureCollection converts the in-domain grid points to GeoJSON points.
// Unclassifiable points carry a null category.
func ToFeatureCollection(res *Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.BBox = geojson.NewBBox(res.Lattice.Bound())

	for _, p := range res.Points {
		if !res.Lattice.Contains(p.Coord) {
			continue
		}
		f := geojson.NewFeature(orb.Point{float64(p.Lon), float64(p.Lat)})
		f.Properties["origin"] = p.Origin.String()
		if p.Elevation.Valid {
			f.Properties["elevation_ft"] = p.Elevation.Value
		} else {
			f.Properties["elevation_ft"] = nil
		}
		if p.Category.Valid() {
			f.Properties["category"] = int(p.Category)
		} else {
			f.Properties["category"] = nil
		}
		if p.Replaced {
			f.Properties["replaced"] = true
		}
		fc.Append(f)
	}

	fc.ExtraMembers = geojson.Properties{
		"run_id": res.RunID,
	}
	return fc
}

// SaveGeoJSON writes the feature collection for res to path
func SaveGeoJSON(path string, res *Result) error {
	data, err := ToFeatureCollection(res).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing GeoJSON: %w", err)
	}
	return nil
}
