package palette

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(width, height int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Set(x, y, color.NRGBA{uint8(x * 255 / width), uint8(y * 255 / height), 0x40, 0xff})
		}
	}
	return m
}

func TestQuantize(t *testing.T) {
	m := gradient(32, 32)
	require.Greater(t, Unique(m), 16)

	pm, err := Quantize(m, 16)
	require.NoError(t, err)
	assert.Equal(t, m.Bounds(), pm.Bounds())
	assert.LessOrEqual(t, len(pm.Palette), 16)
	assert.LessOrEqual(t, Unique(pm), 16)
}

func TestQuantizeKeepsTransparent(t *testing.T) {
	m := gradient(32, 32)
	m.Set(5, 5, color.NRGBA{})
	m.Set(6, 5, color.NRGBA{})

	pm, err := Quantize(m, 8)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(pm.Palette), 8)

	_, _, _, a := pm.At(5, 5).RGBA()
	assert.Equal(t, uint32(0), a)
	_, _, _, a = pm.At(6, 5).RGBA()
	assert.Equal(t, uint32(0), a)
	_, _, _, a = pm.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}

func TestQuantizeDarkNextToTransparent(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 8, 1))
	m.Set(0, 0, color.NRGBA{0, 0, 0, 0xff})
	m.Set(1, 0, color.NRGBA{0, 0, 0, 0xff})
	m.Set(2, 0, color.NRGBA{0x20, 0, 0, 0xff})
	m.Set(3, 0, color.NRGBA{0xff, 0xff, 0xff, 0xff})
	m.Set(4, 0, color.NRGBA{0xfe, 0xff, 0xff, 0xff})

	for _, n := range []int{2, 3, 4} {
		pm, err := Quantize(m, n)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(pm.Palette), n+1)

		for x := 0; x < 5; x++ {
			assert.NotZero(t, alpha(pm.At(x, 0)), "pixel %d with %d colors", x, n)
		}
		for x := 5; x < 8; x++ {
			assert.Zero(t, alpha(pm.At(x, 0)), "pixel %d with %d colors", x, n)
		}
	}
}

func TestQuantizeFewColors(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	m.Set(0, 0, color.NRGBA{0xff, 0, 0, 0xff})
	m.Set(1, 0, color.NRGBA{0xff, 0, 0, 0xff})
	m.Set(2, 0, color.NRGBA{0, 0xff, 0, 0xff})

	pm, err := Quantize(m, 4)
	require.NoError(t, err)
	assert.Len(t, pm.Palette, 3)
	for x := 0; x < 4; x++ {
		assert.Equal(t, m.At(x, 0), color.NRGBAModel.Convert(pm.At(x, 0)))
	}
}

func TestQuantizeBadColors(t *testing.T) {
	m := gradient(4, 4)
	for _, n := range []int{-1, 0, 1, 257} {
		_, err := Quantize(m, n)
		assert.Equal(t, errBadColors, err)
	}
}
