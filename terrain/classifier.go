package terrain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ThresholdTable holds the inclusive upper bound (feet) of categories 0..99.
// Elevations above the last entry fall into MaxCategory.
type ThresholdTable []float64

// ThresholdCount is the number of entries a table must carry
const ThresholdCount = int(MaxCategory)

var defaultThresholds = ThresholdTable{
	-3248, -3117, -1476, -930, -656, -492, -383, -305, -246, -201,
	-164, -134, -109, -88, -70, -55, -41, -29, -18, -9,
	13, 30, 52, 82, 118, 161, 210, 266, 328, 347,
	472, 554, 643, 738, 840, 948, 1063, 1184, 1312, 1447,
	1588, 1736, 1890, 2051, 2218, 2392, 2572, 2759, 2953, 3153,
	3360, 3573, 3793, 4019, 4252, 4492, 4738, 4990, 5250, 5515,
	5788, 6067, 6352, 6644, 6943, 7248, 7559, 7878, 8203, 8534,
	8872, 9216, 9567, 9925, 10289, 10660, 11037, 11421, 11812, 12209,
	12612, 13022, 13439, 13862, 14292, 14728, 15171, 15621, 16077, 16540,
	17009, 17484, 17967, 18456, 18951, 19453, 19962, 20477, 20998, 21527,
}

// DefaultThresholds returns a copy of the built-in table
func DefaultThresholds() ThresholdTable {
	t := make(ThresholdTable, len(defaultThresholds))
	copy(t, defaultThresholds)
	return t
}

// ErrInvalidThresholds is returned by Validate for malformed tables
var ErrInvalidThresholds = errors.New("invalid threshold table")

// Validate checks the table has one finite, strictly ascending entry per category
func (t ThresholdTable) Validate() error {
	if len(t) != ThresholdCount {
		return fmt.Errorf("%w: want %d entries, got %d", ErrInvalidThresholds, ThresholdCount, len(t))
	}
	for i, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: entry %d is not finite", ErrInvalidThresholds, i)
		}
		if i > 0 && v <= t[i-1] {
			return fmt.Errorf("%w: entry %d (%g) not above entry %d (%g)", ErrInvalidThresholds, i, v, i-1, t[i-1])
		}
	}
	return nil
}

// Classify returns the first category whose threshold is >= the elevation.
// Invalid elevations are Unclassifiable.
func (t ThresholdTable) Classify(e Elevation) Category {
	if !e.Valid {
		return Unclassifiable
	}
	for i, threshold := range t {
		if e.Value <= threshold {
			return Category(i)
		}
	}
	return MaxCategory
}

// ClassifyString parses s and classifies it
func (t ThresholdTable) ClassifyString(s string) Category {
	return t.Classify(ParseElevation(s))
}

// ParseElevation reads a finite number; anything else is NoElevation
func ParseElevation(s string) Elevation {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoElevation
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NoElevation
	}
	return Feet(v)
}
