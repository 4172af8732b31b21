package runs

import (
	"context"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red         = Color{1, 0, 0, 1}
	green       = Color{0, 1, 0, 1}
	blue        = Color{0, 0, 1, 1}
	transparent = Color{1, 0, 0, 0}
)

func mustGrid(t *testing.T, width, height int, pix ...Color) *Grid {
	t.Helper()
	g, err := NewGrid(width, height, pix)
	require.NoError(t, err)
	return g
}

func randomGrid(r *rand.Rand, width, height int) *Grid {
	// A small set of levels makes equal and near colors likely
	levels := []float64{0, 0.25, 0.26, 0.5, 1}
	pix := make([]Color, width*height)
	for i := range pix {
		pix[i] = Color{
			R: levels[r.Intn(len(levels))],
			G: levels[r.Intn(len(levels))],
			B: levels[r.Intn(len(levels))],
			A: []float64{0, 1}[r.Intn(2)],
		}
	}
	g, _ := NewGrid(width, height, pix)
	return g
}

func TestMergeScenarios(t *testing.T) {
	tables := []struct {
		name      string
		pix       []Color
		tolerance float64
		runs      []Run
	}{
		{
			"exact",
			[]Color{red, red, green},
			0,
			[]Run{
				{Row: 0, Start: 0, Length: 2, Color: red},
				{Row: 0, Start: 2, Length: 1, Color: green},
			},
		},
		{
			"everything",
			[]Color{red, red, green},
			1,
			[]Run{
				{Row: 0, Start: 0, Length: 3, Color: red},
			},
		},
		{
			"transparent anchor",
			[]Color{transparent, green},
			0,
			[]Run{
				{Row: 0, Start: 1, Length: 1, Color: green},
			},
		},
		{
			"equal to tolerance merges",
			[]Color{{0.5, 0.5, 0.5, 1}, {0.75, 0.25, 0.5, 1}},
			0.25,
			[]Run{
				{Row: 0, Start: 0, Length: 2, Color: Color{0.5, 0.5, 0.5, 1}},
			},
		},
		{
			"anchor relative",
			[]Color{{0.5, 0, 0, 1}, {0.6, 0, 0, 1}, {0.7, 0, 0, 1}, {0.75, 0, 0, 1}},
			0.2,
			[]Run{
				{Row: 0, Start: 0, Length: 3, Color: Color{0.5, 0, 0, 1}},
				{Row: 0, Start: 3, Length: 1, Color: Color{0.75, 0, 0, 1}},
			},
		},
		{
			"alpha ignored",
			[]Color{red, {1, 0, 0, 0.1}, {1, 0, 0, 0}},
			0,
			[]Run{
				{Row: 0, Start: 0, Length: 3, Color: red},
			},
		},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			g := mustGrid(t, len(table.pix), 1, table.pix...)
			runs, err := Merge(g, table.tolerance)
			require.NoError(t, err)
			assert.Equal(t, table.runs, runs)
		})
	}
}

func TestMergeInvalidInput(t *testing.T) {
	g := mustGrid(t, 1, 1, red)

	tables := []struct {
		name string
		grid *Grid
		m    Merger
	}{
		{"nil grid", nil, Merger{}},
		{"empty grid", &Grid{}, Merger{}},
		{"negative tolerance", g, Merger{Tolerance: -0.1}},
		{"large tolerance", g, Merger{Tolerance: 1.5}},
		{"nan tolerance", g, Merger{Tolerance: math.NaN()}},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := table.m.Merge(table.grid)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := NewGrid(0, 3, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewGrid(2, 2, []Color{red})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMergeDisabled(t *testing.T) {
	g := mustGrid(t, 4, 1, red, red, transparent, red)
	runs, err := Merger{Tolerance: 1, Disabled: true}.Merge(g)
	require.NoError(t, err)
	assert.Equal(t, []Run{
		{Row: 0, Start: 0, Length: 1, Color: red},
		{Row: 0, Start: 1, Length: 1, Color: red},
		{Row: 0, Start: 3, Length: 1, Color: red},
	}, runs)
}

func TestMergeDistinctNeighbours(t *testing.T) {
	g := mustGrid(t, 6, 1, red, green, blue, red, green, blue)
	runs, err := Merge(g, 0)
	require.NoError(t, err)
	require.Len(t, runs, 6)
	for i, r := range runs {
		assert.Equal(t, i, r.Start)
		assert.Equal(t, 1, r.Length)
	}
}

func TestMergeTransparentRow(t *testing.T) {
	pix := make([]Color, 1000)
	for i := range pix {
		pix[i] = Color{float64(i%7) / 7, 0, 0, 0}
	}
	g := mustGrid(t, len(pix), 1, pix...)

	runs, err := Merge(g, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	spans, err := Merger{}.Spans(g, 0)
	require.NoError(t, err)
	assert.Len(t, spans, len(pix))
	for _, s := range spans {
		assert.True(t, s.Transparent)
	}
}

func TestMergeRowOrder(t *testing.T) {
	g := mustGrid(t, 2, 3,
		red, red,
		transparent, transparent,
		green, blue,
	)
	runs, err := Merge(g, 0)
	require.NoError(t, err)
	assert.Equal(t, []Run{
		{Row: 0, Start: 0, Length: 2, Color: red},
		{Row: 2, Start: 0, Length: 1, Color: green},
		{Row: 2, Start: 1, Length: 1, Color: blue},
	}, runs)
}

func TestMergeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		g := randomGrid(r, 1+r.Intn(20), 1+r.Intn(5))
		m := Merger{Tolerance: []float64{0, 0.01, 0.25, 0.5, 1}[r.Intn(5)]}

		for row := 0; row < g.Height(); row++ {
			spans, err := m.Spans(g, row)
			require.NoError(t, err)

			// Spans partition the row
			col := 0
			for _, s := range spans {
				require.Equal(t, col, s.Start)
				require.GreaterOrEqual(t, s.Length, 1)
				col = s.End()

				// Every pixel is within tolerance of the anchor
				for x := s.Start; x < s.End(); x++ {
					assert.True(t, m.within(s.Color, g.At(x, row)))
				}

				// Runs are maximal
				if s.End() < g.Width() {
					assert.False(t, m.within(s.Color, g.At(s.End(), row)))
				}
			}
			require.Equal(t, g.Width(), col)
		}

		runs, err := m.Merge(g)
		require.NoError(t, err)
		for _, run := range runs {
			assert.Greater(t, run.Color.A, 0.0)
		}
	}
}

func TestRunsEarlyStop(t *testing.T) {
	g := mustGrid(t, 3, 2, red, green, blue, blue, green, red)
	seq, err := Merger{}.Runs(g)
	require.NoError(t, err)

	var first []Run
	for r := range seq {
		first = append(first, r)
		if len(first) == 2 {
			break
		}
	}
	assert.Len(t, first, 2)

	// Restartable
	var all []Run
	for r := range seq {
		all = append(all, r)
	}
	assert.Len(t, all, 6)
	assert.Equal(t, first, all[:2])
}

func TestMergeParallel(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	g := randomGrid(r, 64, 40)
	m := Merger{Tolerance: 0.25}

	want, err := m.Merge(g)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 4, 100} {
		got, err := m.MergeParallel(context.Background(), g, workers)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.MergeParallel(ctx, g, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeSingleColumn(t *testing.T) {
	g := mustGrid(t, 1, 4, red, transparent, green, red)

	for _, m := range []Merger{{}, {Tolerance: 1}, {Disabled: true}} {
		runs, err := m.Merge(g)
		require.NoError(t, err)
		assert.Equal(t, []Run{
			{Row: 0, Start: 0, Length: 1, Color: red},
			{Row: 2, Start: 0, Length: 1, Color: green},
			{Row: 3, Start: 0, Length: 1, Color: red},
		}, runs)

		spans, err := m.Spans(g, 1)
		require.NoError(t, err)
		assert.Equal(t, []Span{{Run: Run{Row: 1, Start: 0, Length: 1, Color: transparent}, Transparent: true}}, spans)
	}
}

func TestGridFromImage(t *testing.T) {
	m := image.NewNRGBA(image.Rect(10, 10, 12, 12))
	m.Set(10, 10, color.NRGBA{0xff, 0, 0, 0xff})
	m.Set(11, 11, color.NRGBA{0, 0, 0xff, 0x80})

	g, err := GridFromImage(m)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Width())
	assert.Equal(t, 2, g.Height())
	assert.Equal(t, red, g.At(0, 0))
	assert.Equal(t, Color{}, g.At(1, 0))
	assert.InDelta(t, 1.0, g.At(1, 1).B, 1e-9)
	assert.InDelta(t, float64(0x80)/0xff, g.At(1, 1).A, 1e-9)

	_, err = GridFromImage(image.NewNRGBA(image.Rectangle{}))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestColorRGBA(t *testing.T) {
	c := color.NRGBAModel.Convert(Color{1, 0.5, 0, 1}).(color.NRGBA)
	assert.Equal(t, color.NRGBA{0xff, 0x80, 0x00, 0xff}, c)
}
