package terrain

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OutputPath places the output next to input: "dir/name.csv" becomes
// "dir/name<suffix>"
func OutputPath(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

// OutputHeader is the input header plus the derived columns
func OutputHeader(set *SampleSet) []string {
	header := append([]string{}, set.Header...)
	if set.FeetColumn >= len(set.Header) {
		header = append(header, ColumnFeet)
	}
	return append(header, ColumnCategory, ColumnLonInt, ColumnLatInt)
}

// WriteCSV writes every output row of res
func WriteCSV(w io.Writer, res *Result) error {
	if res.Set == nil {
		return fmt.Errorf("writing CSV: result has no sample set")
	}
	set := res.Set
	header := OutputHeader(set)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	width := len(header)
	catCol := width - 3
	for _, row := range res.Rows() {
		record := make([]string, width)
		if row.Sample != nil {
			copy(record, row.Sample.Values)
		} else {
			record[set.LonColumn] = strconv.Itoa(row.Coord.Lon)
			record[set.LatColumn] = strconv.Itoa(row.Coord.Lat)
		}

		// Input feet columns are echoed verbatim unless the value changed
		if row.Sample == nil || row.Replaced || set.ConvertedFromMeters() {
			record[set.FeetColumn] = formatElevation(row.Elevation)
		}
		if row.Replaced && set.ConvertedFromMeters() {
			record[set.MetersColumn] = ""
		}

		if row.Category.Valid() {
			record[catCol] = strconv.Itoa(int(row.Category))
		}
		if row.Located {
			record[catCol+1] = strconv.Itoa(row.Coord.Lon)
			record[catCol+2] = strconv.Itoa(row.Coord.Lat)
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes res to path
func WriteCSVFile(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := WriteCSV(f, res); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

func formatElevation(e Elevation) string {
	if !e.Valid {
		return ""
	}
	return strconv.FormatFloat(e.Value, 'f', -1, 64)
}
