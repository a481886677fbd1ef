package terrain

import (
	"fmt"
	"math"
)

// Coord is a lattice position in integer degrees
type Coord struct {
	Lon int `json:"lon"`
	Lat int `json:"lat"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.Lon, c.Lat)
}

// Elevation is a parsed elevation in feet. Valid is false when the source
// value could not be read as a finite number.
type Elevation struct {
	Value float64
	Valid bool
}

// Feet returns a valid elevation, or an invalid one for NaN and ±Inf
func Feet(v float64) Elevation {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Elevation{}
	}
	return Elevation{Value: v, Valid: true}
}

// NoElevation is the parse-failure marker
var NoElevation = Elevation{}

// Positive reports whether the elevation is known and strictly above zero
func (e Elevation) Positive() bool {
	return e.Valid && e.Value > 0
}

// Category is an ordinal elevation bucket in [0, 100]
type Category int

// Unclassifiable marks a category that could not be derived
const Unclassifiable Category = -1

// MaxCategory is returned for elevations above the last threshold
const MaxCategory Category = 100

// Valid reports whether c is a real category rather than Unclassifiable
func (c Category) Valid() bool {
	return c >= 0 && c <= MaxCategory
}

// Brightness maps a category to a normalized grey level in [0, 1]
func (c Category) Brightness() (float64, bool) {
	if !c.Valid() {
		return 0, false
	}
	return float64(c) / float64(MaxCategory), true
}

// Origin records how a point entered the grid
type Origin int

const (
	OriginSample Origin = iota
	OriginOuterFill
	OriginHoleFill
)

func (o Origin) String() string {
	switch o {
	case OriginSample:
		return "sample"
	case OriginOuterFill:
		return "outer-fill"
	case OriginHoleFill:
		return "hole-fill"
	}
	return "unknown"
}

// Synthetic reports whether the point was derived by a fill pass
func (o Origin) Synthetic() bool {
	return o != OriginSample
}

// GridPoint is one known cell of the lattice
type GridPoint struct {
	Coord
	Elevation Elevation
	Category  Category
	Origin    Origin
	// Row is the output row this point is written to; -1 for points that
	// have not been assigned a row yet.
	Row int
	// Replaced is set on an original sample whose elevation was rewritten
	// by the hole filler.
	Replaced bool
}

// Sample is one parsed input row
type Sample struct {
	// Values holds the raw column values in input column order
	Values []string
	Lon    float64
	Lat    float64
	// Located is false when lon/lat could not be parsed; such rows are
	// written back unchanged but never enter the grid.
	Located   bool
	Coord     Coord
	Elevation Elevation
	Category  Category
}

// OutputConfig controls the files written next to the input
type OutputConfig struct {
	// Suffix is appended to the input base name (default "_updated.csv")
	Suffix string `yaml:"suffix" json:"suffix"`

	// Format selects the rendering: raster, vector, both, or none
	Format string `yaml:"format" json:"format"`

	// PixelsPerCell scales the raster (default 4)
	PixelsPerCell int `yaml:"pixelsPerCell" json:"pixelsPerCell"`

	// NoDataColor fills cells without a category (default black, which
	// matches category 0)
	NoDataColor string `yaml:"noDataColor" json:"noDataColor"`

	Caption bool `yaml:"caption,omitempty" json:"caption,omitempty"`
	GeoJSON bool `yaml:"geojson,omitempty" json:"geojson,omitempty"`
	Report  bool `yaml:"report,omitempty" json:"report,omitempty"`

	// ImageSuffix names rendered files (default "_grid")
	ImageSuffix string `yaml:"imageSuffix,omitempty" json:"imageSuffix,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	Lattice          Lattice        `yaml:"lattice" json:"lattice"`
	Traversal        TraversalOrder `yaml:"traversal" json:"traversal"`
	TrailingHolePass *bool          `yaml:"trailingHolePass,omitempty" json:"trailingHolePass,omitempty"` // Extra hole pass after the fixpoint (default true)
	Thresholds       ThresholdTable `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`             // Overrides the built-in table
	Output           OutputConfig   `yaml:"output" json:"output"`
	MQTT             MQTTConfig     `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	RunHistory       string         `yaml:"runHistory,omitempty" json:"runHistory,omitempty"` // JSON file for the service's run history; empty keeps it in memory
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// RunTrailingHolePass returns the configured value or true if unset
func (c *Config) RunTrailingHolePass() bool {
	if c.TrailingHolePass != nil {
		return *c.TrailingHolePass
	}
	return true
}

// Table returns the configured thresholds or the built-in table
func (c *Config) Table() ThresholdTable {
	if len(c.Thresholds) > 0 {
		return c.Thresholds
	}
	return DefaultThresholds()
}
