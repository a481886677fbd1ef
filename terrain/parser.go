package terrain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// Input column names. Headers are matched after trimming whitespace.
const (
	ColumnLongitude = "longitude(degrees)"
	ColumnLatitude  = "latitude (degrees)"
	ColumnMeters    = "elevation (m)"
	ColumnFeet      = "elevation (ft)"
	ColumnCategory  = "Category"
	ColumnLonInt    = "lon_int"
	ColumnLatInt    = "lat_int"
)

// FeetPerMeter converts metric elevations before classification
const FeetPerMeter = 3.28084

// ErrMissingColumns is matched by every MissingColumnsError
var ErrMissingColumns = errors.New("missing required columns")

// MissingColumnsError lists the required columns absent from the header
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// SampleSet is a parsed input table
type SampleSet struct {
	Header  []string
	Samples []Sample

	LonColumn int
	LatColumn int
	// MetersColumn is -1 when the input is already in feet
	MetersColumn int
	// FeetColumn is the output column holding feet. It equals len(Header)
	// when the column is derived from meters and appended.
	FeetColumn int
}

// ConvertedFromMeters reports whether elevations were read in meters
func (s *SampleSet) ConvertedFromMeters() bool {
	return s.MetersColumn >= 0
}

// ReadSamplesFile opens path and reads it with ReadSamples
func ReadSamplesFile(path string, lattice Lattice) (*SampleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return ReadSamples(f, lattice)
}

// ReadSamples parses a CSV table of samples. Meters are converted to feet.
// A missing coordinate or elevation column fails before any row is read.
// Rows whose coordinates cannot be parsed are kept but left unlocated.
func ReadSamples(r io.Reader, lattice Lattice) (*SampleSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &MissingColumnsError{Missing: []string{ColumnLongitude, ColumnLatitude, ColumnMeters + " or " + ColumnFeet}}
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	set := &SampleSet{
		Header:       make([]string, len(header)),
		LonColumn:    -1,
		LatColumn:    -1,
		MetersColumn: -1,
		FeetColumn:   -1,
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		set.Header[i] = h
		switch h {
		case ColumnLongitude:
			set.LonColumn = i
		case ColumnLatitude:
			set.LatColumn = i
		case ColumnMeters:
			set.MetersColumn = i
		case ColumnFeet:
			set.FeetColumn = i
		}
	}

	var missing []string
	if set.LonColumn < 0 {
		missing = append(missing, ColumnLongitude)
	}
	if set.LatColumn < 0 {
		missing = append(missing, ColumnLatitude)
	}
	if set.MetersColumn < 0 && set.FeetColumn < 0 {
		missing = append(missing, ColumnMeters+" or "+ColumnFeet)
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	if set.ConvertedFromMeters() && set.FeetColumn < 0 {
		set.FeetColumn = len(set.Header)
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}
		set.Samples = append(set.Samples, set.parseRecord(record, lattice))
	}

	if set.ConvertedFromMeters() {
		log.Println("Converted elevation from meters to feet.")
	}

	return set, nil
}

func (s *SampleSet) parseRecord(record []string, lattice Lattice) Sample {
	sample := Sample{
		Values:   record,
		Category: Unclassifiable,
	}

	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(record[s.LonColumn]), 64)
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(record[s.LatColumn]), 64)
	if lonErr == nil && latErr == nil && finite(lon) && finite(lat) {
		sample.Lon, sample.Lat = lon, lat
		sample.Coord = lattice.Snap(lon, lat)
		sample.Located = true
	}

	if s.ConvertedFromMeters() {
		m := ParseElevation(record[s.MetersColumn])
		if m.Valid {
			sample.Elevation = Feet(m.Value * FeetPerMeter)
		}
	} else {
		sample.Elevation = ParseElevation(record[s.FeetColumn])
	}

	return sample
}

func finite(v float64) bool {
	return Feet(v).Valid
}
