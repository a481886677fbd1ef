package terrain

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Stage names a phase of a reconstruction run
type Stage string

const (
	StageOuterFill    Stage = "outer-fill"
	StageHoleFill     Stage = "hole-fill"
	StageTrailingFill Stage = "trailing-hole-fill"
)

// ProgressReporter observes a run. Calls arrive on the run's goroutine.
type ProgressReporter interface {
	PassCompleted(runID string, stage Stage, pass, added int)
	StageCompleted(runID string, stage Stage, total int)
}

// LogReporter writes progress lines to the standard logger
type LogReporter struct{}

func (LogReporter) PassCompleted(runID string, stage Stage, pass, added int) {
	switch stage {
	case StageOuterFill:
		log.Printf("Filled %d new points...", added)
	case StageHoleFill:
		log.Printf("Internal holes filled this round: %d", added)
	default:
		log.Printf("Trailing hole pass filled: %d", added)
	}
}

func (LogReporter) StageCompleted(runID string, stage Stage, total int) {
	switch stage {
	case StageOuterFill:
		log.Printf("Total filled points: %d", total)
	case StageHoleFill:
		log.Printf("Total internal holes filled: %d", total)
	}
}

// MultiReporter fans progress out to several reporters
type MultiReporter []ProgressReporter

func (m MultiReporter) PassCompleted(runID string, stage Stage, pass, added int) {
	for _, r := range m {
		r.PassCompleted(runID, stage, pass, added)
	}
}

func (m MultiReporter) StageCompleted(runID string, stage Stage, total int) {
	for _, r := range m {
		r.StageCompleted(runID, stage, total)
	}
}

// Result is the outcome of one reconstruction run
type Result struct {
	RunID   string
	Lattice Lattice
	Set     *SampleSet
	// Points is the final grid in insertion order
	Points []GridPoint

	// OuterPasses and HolePasses hold the count added by each pass,
	// including the final pass that added nothing
	OuterPasses   []int
	HolePasses    []int
	TrailingAdded int

	OuterTotal int
	HoleTotal  int
	// Replaced counts original samples rewritten in place by the hole filler
	Replaced int

	Started time.Time
	Elapsed time.Duration
}

// Synthetic is the number of points appended by the fill passes
func (r *Result) Synthetic() int {
	n := 0
	for _, p := range r.Points {
		if p.Origin.Synthetic() {
			n++
		}
	}
	return n
}

// Row is one output row
type Row struct {
	// Sample is nil for synthetic rows
	Sample    *Sample
	Coord     Coord
	Located   bool
	Elevation Elevation
	Category  Category
	Origin    Origin
	Replaced  bool
}

// Rows returns the output rows: every input row in input order, with
// replaced samples rewritten in place, followed by the synthetic points in
// the order they were created
func (r *Result) Rows() []Row {
	var samples []Sample
	if r.Set != nil {
		samples = r.Set.Samples
	}
	rows := make([]Row, 0, len(samples)+len(r.Points))
	for i := range samples {
		s := &samples[i]
		rows = append(rows, Row{
			Sample:    s,
			Coord:     s.Coord,
			Located:   s.Located,
			Elevation: s.Elevation,
			Category:  s.Category,
			Origin:    OriginSample,
		})
	}
	for _, p := range r.Points {
		if p.Origin.Synthetic() {
			rows = append(rows, Row{
				Coord:     p.Coord,
				Located:   true,
				Elevation: p.Elevation,
				Category:  p.Category,
				Origin:    p.Origin,
			})
			continue
		}
		if p.Replaced && p.Row >= 0 && p.Row < len(samples) {
			rows[p.Row].Elevation = p.Elevation
			rows[p.Row].Category = p.Category
			rows[p.Row].Replaced = true
		}
	}
	return rows
}

// Reconstructor sequences classification and both fill loops. Each call
// to Run owns a fresh SparseGrid.
type Reconstructor struct {
	lattice  Lattice
	table    ThresholdTable
	order    TraversalOrder
	trailing bool
	reporter ProgressReporter
}

// NewReconstructor creates a reconstructor from config. A nil reporter
// discards progress.
func NewReconstructor(config *Config, reporter ProgressReporter) (*Reconstructor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Lattice.Validate(); err != nil {
		return nil, err
	}
	table := config.Table()
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = MultiReporter{}
	}
	return &Reconstructor{
		lattice:  config.Lattice,
		table:    table,
		order:    config.Traversal,
		trailing: config.RunTrailingHolePass(),
		reporter: reporter,
	}, nil
}

// Run classifies every sample, fills outer gaps to a fixpoint, then fills
// internal holes to a fixpoint. Samples in set are updated with their
// category.
func (rc *Reconstructor) Run(set *SampleSet) (*Result, error) {
	if set == nil {
		return nil, fmt.Errorf("reconstruct: no samples")
	}

	res := &Result{
		RunID:   uuid.NewString(),
		Lattice: rc.lattice,
		Set:     set,
		Started: time.Now(),
	}

	points := make([]GridPoint, 0, len(set.Samples))
	for i := range set.Samples {
		s := &set.Samples[i]
		s.Category = rc.table.Classify(s.Elevation)
		if !s.Located {
			continue
		}
		points = append(points, GridPoint{
			Coord:     s.Coord,
			Elevation: s.Elevation,
			Category:  s.Category,
			Origin:    OriginSample,
			Row:       i,
		})
	}
	grid := NewSparseGrid(points)

	outer := &OuterGapFiller{Lattice: rc.lattice, Table: rc.table, Order: rc.order}
	res.OuterTotal = outer.Fill(grid, func(pass, added int) {
		res.OuterPasses = append(res.OuterPasses, added)
		rc.reporter.PassCompleted(res.RunID, StageOuterFill, pass, added)
	})
	rc.reporter.StageCompleted(res.RunID, StageOuterFill, res.OuterTotal)

	holes := &InternalHoleFiller{Lattice: rc.lattice, Table: rc.table, Order: rc.order}
	res.HoleTotal = holes.Fill(grid, func(pass, added int) {
		res.HolePasses = append(res.HolePasses, added)
		rc.reporter.PassCompleted(res.RunID, StageHoleFill, pass, added)
	})
	rc.reporter.StageCompleted(res.RunID, StageHoleFill, res.HoleTotal)

	if rc.trailing {
		res.TrailingAdded = holes.Pass(grid)
		rc.reporter.PassCompleted(res.RunID, StageTrailingFill, 1, res.TrailingAdded)
	}

	res.Points = grid.Points()
	for _, p := range res.Points {
		if p.Replaced {
			res.Replaced++
		}
	}
	res.Elapsed = time.Since(res.Started)
	return res, nil
}
