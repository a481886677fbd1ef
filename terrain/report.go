package terrain

import (
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ElevationSummary describes the valid elevations of a set of points
type ElevationSummary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// SummarizeElevations computes statistics over points with valid elevations
func SummarizeElevations(points []GridPoint) ElevationSummary {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Elevation.Valid {
			values = append(values, p.Elevation.Value)
		}
	}
	if len(values) == 0 {
		return ElevationSummary{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return ElevationSummary{
		Count:  len(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
	}
}

// passXYs turns per-pass counts into plot points, pass numbers from 1
func passXYs(counts []int) plotter.XYs {
	pts := make(plotter.XYs, len(counts))
	for i, n := range counts {
		pts[i].X = float64(i + 1)
		pts[i].Y = float64(n)
	}
	return pts
}

// ConvergencePlot builds a line plot of points added per pass for both
// fill loops
func ConvergencePlot(res *Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Fill convergence"
	p.X.Label.Text = "Pass"
	p.Y.Label.Text = "Points added"

	series := []struct {
		name   string
		counts []int
		color  color.Color
	}{
		{"outer fill", res.OuterPasses, color.RGBA{R: 31, G: 119, B: 180, A: 255}},
		{"hole fill", res.HolePasses, color.RGBA{R: 214, G: 39, B: 40, A: 255}},
	}
	for _, s := range series {
		if len(s.counts) == 0 {
			continue
		}
		line, err := plotter.NewLine(passXYs(s.counts))
		if err != nil {
			return nil, fmt.Errorf("creating %s line: %w", s.name, err)
		}
		line.Color = s.color
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// SaveConvergencePlot writes the convergence plot as an image. The format
// follows the file extension.
func SaveConvergencePlot(path string, res *Result) error {
	p, err := ConvergencePlot(res)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving convergence plot: %w", err)
	}
	return nil
}

// RenderConvergenceHTML writes an interactive chart of points added per pass
func RenderConvergenceHTML(w io.Writer, res *Result) error {
	passes := len(res.OuterPasses)
	if len(res.HolePasses) > passes {
		passes = len(res.HolePasses)
	}
	labels := make([]string, passes)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}

	lineData := func(counts []int) []opts.LineData {
		data := make([]opts.LineData, len(counts))
		for i, n := range counts {
			data[i] = opts.LineData{Value: n}
		}
		return data
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fill convergence", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Fill convergence",
			Subtitle: fmt.Sprintf("run=%s outer=%d holes=%d replaced=%d", res.RunID, res.OuterTotal, res.HoleTotal, res.Replaced),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Pass", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Points added"}),
	)
	line.SetXAxis(labels).
		AddSeries("outer fill", lineData(res.OuterPasses)).
		AddSeries("hole fill", lineData(res.HolePasses))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("rendering convergence chart: %w", err)
	}
	return nil
}
