package terrain

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RasterRenderer draws the lattice as a greyscale image, one block of
// PixelsPerCell pixels per cell, north up
type RasterRenderer struct {
	Lattice       Lattice
	PixelsPerCell int
	// NoData colors cells without a category. The default black cannot be
	// told apart from category 0.
	NoData  color.RGBA
	Caption string
}

// NewRasterRenderer creates a renderer from the output config
func NewRasterRenderer(config *Config) (*RasterRenderer, error) {
	noData, err := ParseHexColor(config.Output.NoDataColor)
	if err != nil {
		return nil, err
	}
	return &RasterRenderer{
		Lattice:       config.Lattice,
		PixelsPerCell: config.Output.PixelsPerCell,
		NoData:        noData,
	}, nil
}

// GreyLevel maps a category to its 8-bit grey value
func GreyLevel(c Category) (uint8, bool) {
	b, ok := c.Brightness()
	if !ok {
		return 0, false
	}
	return uint8(math.Round(b * 255)), true
}

// cellImage renders one pixel per lattice cell
func (r *RasterRenderer) cellImage(points []GridPoint) *image.RGBA {
	cols, rows := r.Lattice.Columns(), r.Lattice.Rows()
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.NoData), image.Point{}, draw.Src)

	for _, p := range points {
		if !r.Lattice.Contains(p.Coord) {
			continue
		}
		grey, ok := GreyLevel(p.Category)
		if !ok {
			continue
		}
		col, row := r.Lattice.Index(p.Coord)
		img.Set(col, rows-1-row, color.RGBA{grey, grey, grey, 255})
	}
	return img
}

// Render creates the scaled image
func (r *RasterRenderer) Render(points []GridPoint) *image.RGBA {
	cells := r.cellImage(points)

	scale := r.PixelsPerCell
	if scale < 1 {
		scale = 1
	}
	b := cells.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(img, img.Bounds(), cells, b, draw.Src, nil)

	if r.Caption != "" {
		drawText(img, 6, 16, r.Caption, color.RGBA{255, 99, 71, 255})
	}
	return img
}

// RenderPNG encodes the rendered image to w
func (r *RasterRenderer) RenderPNG(w io.Writer, points []GridPoint) error {
	if err := png.Encode(w, r.Render(points)); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// SavePNG renders to a file
func (r *RasterRenderer) SavePNG(path string, points []GridPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image: %w", err)
	}
	if err := r.RenderPNG(f, points); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RunCaption summarizes a result for the image caption
func RunCaption(res *Result) string {
	return fmt.Sprintf("samples=%d outer=%d holes=%d", len(res.Set.Samples), res.OuterTotal, res.HoleTotal)
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
