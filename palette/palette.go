/*
Package palette reduces the number of colors in an image before it is split
into runs. Fewer colors means longer runs and so fewer quads.
*/
package palette

import (
	"errors"
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
)

const (
	// MinColors is the smallest palette Quantize will build
	MinColors = 2
	// MaxColors is the largest palette Quantize will build
	MaxColors = 256
)

var errBadColors = errors.New("palette: number of colors must be between 2 and 256")

var transparent = color.NRGBA{}

func countColors(m image.Image) map[color.Color]int {
	colors := make(map[color.Color]int)
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			colors[color.NRGBAModel.Convert(m.At(x, y))]++
		}
	}
	return colors
}

func hasTransparent(m image.Image) bool {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := m.At(x, y).RGBA(); a == 0 {
				return true
			}
		}
	}
	return false
}

// Unique returns the number of distinct colors in m.
func Unique(m image.Image) int {
	return len(countColors(m))
}

func alpha(c color.Color) uint32 {
	_, _, _, a := c.RGBA()
	return a
}

// opaqueWeight leaves fully transparent pixels out of the median cut.
func opaqueWeight(m image.Image, x, y int) uint32 {
	if alpha(m.At(x, y)) == 0 {
		return 0
	}
	return 1
}

// remap draws m into a paletted image. Fully transparent pixels use the
// transparent entry, any other pixel the closest entry that isn't fully
// transparent, so an opaque pixel is never dropped.
func remap(m image.Image, p color.Palette) *image.Paletted {
	var (
		opaque     color.Palette
		index      []uint8
		clearIndex = -1
	)
	for i, c := range p {
		if alpha(c) == 0 {
			if clearIndex < 0 {
				clearIndex = i
			}
			continue
		}
		opaque = append(opaque, c)
		index = append(index, uint8(i))
	}

	b := m.Bounds()
	if clearIndex < 0 && hasTransparent(m) {
		p = append(p, transparent)
		clearIndex = len(p) - 1
	}

	pm := image.NewPaletted(b, p)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := m.At(x, y)
			if alpha(c) == 0 {
				pm.SetColorIndex(x, y, uint8(clearIndex))
				continue
			}
			pm.SetColorIndex(x, y, index[opaque.Index(c)])
		}
	}
	return pm
}

// Quantize returns a copy of m using no more than n colors. Fully transparent
// pixels stay fully transparent and use up one of the n colors. Every other
// pixel keeps a color that isn't fully transparent.
func Quantize(m image.Image, n int) (*image.Paletted, error) {
	if n < MinColors || n > MaxColors {
		return nil, errBadColors
	}

	// Already few enough colors, copy them as-is
	if h := countColors(m); len(h) <= n {
		p := make(color.Palette, 0, len(h))
		for c := range h {
			if alpha(c) == 0 {
				continue
			}
			p = append(p, c)
		}
		if hasTransparent(m) {
			p = append(p, transparent)
		}
		return remap(m, p), nil
	}

	q := quantize.MedianCutQuantizer{
		Weighting: opaqueWeight,
	}

	size := n
	if hasTransparent(m) {
		q.AddTransparent = true
		size--
	}

	return remap(m, q.Quantize(make(color.Palette, 0, size), m)), nil
}
