package terrain

import (
	"image/color"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/svg"
)

// canvasRenderer is the part of the canvas renderers the vector output uses
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// VectorRenderer draws the lattice as SVG rectangles. Adjacent cells of a
// row with the same grey level are merged into one rectangle.
type VectorRenderer struct {
	Lattice Lattice
	NoData  color.RGBA
	// CellMM is the drawn size of one cell in millimeters
	CellMM float64
}

// NewVectorRenderer creates a renderer from the output config
func NewVectorRenderer(config *Config) (*VectorRenderer, error) {
	noData, err := ParseHexColor(config.Output.NoDataColor)
	if err != nil {
		return nil, err
	}
	return &VectorRenderer{
		Lattice: config.Lattice,
		NoData:  noData,
		CellMM:  1.0,
	}, nil
}

// run is a horizontal span of equally colored cells
type run struct {
	col, row, length int
	color            color.RGBA
}

// runs collapses each lattice row into spans of equal color
func (r *VectorRenderer) runs(points []GridPoint) []run {
	cols, rows := r.Lattice.Columns(), r.Lattice.Rows()
	cells := make([]color.RGBA, cols*rows)
	for i := range cells {
		cells[i] = r.NoData
	}
	for _, p := range points {
		if !r.Lattice.Contains(p.Coord) {
			continue
		}
		grey, ok := GreyLevel(p.Category)
		if !ok {
			continue
		}
		col, row := r.Lattice.Index(p.Coord)
		cells[row*cols+col] = color.RGBA{grey, grey, grey, 255}
	}

	var out []run
	for row := 0; row < rows; row++ {
		start := 0
		for col := 1; col <= cols; col++ {
			if col < cols && cells[row*cols+col] == cells[row*cols+start] {
				continue
			}
			out = append(out, run{col: start, row: row, length: col - start, color: cells[row*cols+start]})
			start = col
		}
	}
	return out
}

// RenderToSVG writes the lattice as an SVG to w
func (r *VectorRenderer) RenderToSVG(w io.Writer, points []GridPoint) error {
	width := float64(r.Lattice.Columns()) * r.CellMM
	height := float64(r.Lattice.Rows()) * r.CellMM

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, points)

	return svgRenderer.Close()
}

// renderToCanvas draws every run. Canvas y grows upward, so row 0 (the
// southern edge) sits at the bottom.
func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, points []GridPoint) {
	for _, span := range r.runs(points) {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: span.color}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}

		rect := canvas.Rectangle(float64(span.length)*r.CellMM, r.CellMM)
		m := canvas.Identity.Translate(float64(span.col)*r.CellMM, float64(span.row)*r.CellMM)
		renderer.RenderPath(rect, style, m)
	}
}
