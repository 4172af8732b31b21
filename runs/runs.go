/*
Package runs implements the row run merger used to turn a bitmap into a set
of horizontal quads.

Each row of a Grid is split into runs: maximal spans of pixels whose red,
green and blue channels are all within a tolerance of the first pixel of the
span, the anchor. Alpha is never compared. A span whose anchor is fully
transparent is skipped as a block and produces no run.
*/
package runs

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidInput is wrapped by every error returned for a bad grid or
// tolerance.
var ErrInvalidInput = errors.New("runs: invalid input")

// Color is a non-premultiplied color with each channel in [0,1].
type Color struct {
	R, G, B, A float64
}

// ColorOf converts any color.Color to a Color.
func ColorOf(c color.Color) Color {
	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return Color{
		R: float64(n.R) / 0xffff,
		G: float64(n.G) / 0xffff,
		B: float64(n.B) / 0xffff,
		A: float64(n.A) / 0xffff,
	}
}

func channel(v float64) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}

// NRGBA64 returns c as a 16-bit per channel color.
func (c Color) NRGBA64() color.NRGBA64 {
	return color.NRGBA64{
		R: channel(c.R),
		G: channel(c.G),
		B: channel(c.B),
		A: channel(c.A),
	}
}

// RGBA implements the color.Color interface.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA64().RGBA()
}

// Grid is a read-only width by height view of colors. Row 0 is the first row.
type Grid struct {
	width, height int
	pix           []Color
}

// NewGrid returns a Grid holding a copy of pix, which must be laid out row
// by row and hold exactly width*height colors.
func NewGrid(width, height int, pix []Color) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid is %dx%d", ErrInvalidInput, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %d colors for a %dx%d grid", ErrInvalidInput, len(pix), width, height)
	}
	dup := make([]Color, len(pix))
	copy(dup, pix)
	return &Grid{
		width:  width,
		height: height,
		pix:    dup,
	}, nil
}

// GridFromImage samples every pixel of m. Row 0 is the top row of the image.
func GridFromImage(m image.Image) (*Grid, error) {
	b := m.Bounds()
	pix := make([]Color, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pix = append(pix, ColorOf(m.At(x, y)))
		}
	}
	return NewGrid(b.Dx(), b.Dy(), pix)
}

// Width returns the number of columns.
func (g *Grid) Width() int {
	return g.width
}

// Height returns the number of rows.
func (g *Grid) Height() int {
	return g.height
}

// At returns the color at the given column and row.
func (g *Grid) At(col, row int) Color {
	return g.pix[row*g.width+col]
}
