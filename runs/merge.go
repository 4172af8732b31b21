package runs

import (
	"context"
	"fmt"
	"iter"
	"math"
	"sync"
)

// Run is a horizontal span of Length pixels starting at column Start of row
// Row. Color is the anchor color, alpha included.
type Run struct {
	Row    int
	Start  int
	Length int
	Color  Color
}

// End returns the column just past the run.
func (r Run) End() int {
	return r.Start + r.Length
}

// Span is a run visited by the merger. Transparent spans are skipped and never
// emitted as runs.
type Span struct {
	Run
	Transparent bool
}

// Merger splits the rows of a Grid into runs.
type Merger struct {
	// Tolerance is the largest per channel difference from the anchor that
	// still merges. Must be within [0,1].
	Tolerance float64

	// Disabled turns merging off so every span is a single pixel.
	Disabled bool
}

// Merge is shorthand for Merger{Tolerance: tolerance}.Merge(g).
func Merge(g *Grid, tolerance float64) ([]Run, error) {
	return Merger{Tolerance: tolerance}.Merge(g)
}

// Validate checks g and the tolerance.
func (m Merger) Validate(g *Grid) error {
	switch {
	case g == nil:
		return fmt.Errorf("%w: nil grid", ErrInvalidInput)
	case g.width <= 0 || g.height <= 0:
		return fmt.Errorf("%w: grid is %dx%d", ErrInvalidInput, g.width, g.height)
	case math.IsNaN(m.Tolerance) || m.Tolerance < 0 || m.Tolerance > 1:
		return fmt.Errorf("%w: tolerance %v outside [0,1]", ErrInvalidInput, m.Tolerance)
	}
	return nil
}

func (m Merger) exceeds(a, b float64) bool {
	return math.Abs(a-b) > m.Tolerance
}

func (m Merger) within(anchor, c Color) bool {
	if m.Disabled {
		return false
	}
	return !(m.exceeds(c.R, anchor.R) || m.exceeds(c.G, anchor.G) || m.exceeds(c.B, anchor.B))
}

// length counts the pixels from col that merge with the anchor at col.
// Every candidate is compared against the anchor, never its neighbour.
func (m Merger) length(g *Grid, row, col int, anchor Color) int {
	n := 1
	for col+n < g.width && m.within(anchor, g.At(col+n, row)) {
		n++
	}
	return n
}

// scan calls fn for every span of row in column order and stops early if fn
// returns false.
func (m Merger) scan(g *Grid, row int, fn func(Span) bool) bool {
	for col := 0; col < g.width; {
		anchor := g.At(col, row)
		n := m.length(g, row, col, anchor)
		s := Span{
			Run: Run{
				Row:    row,
				Start:  col,
				Length: n,
				Color:  anchor,
			},
			Transparent: anchor.A <= 0,
		}
		if !fn(s) {
			return false
		}
		col += n
	}
	return true
}

// Spans returns every span of the given row, transparent ones included.
func (m Merger) Spans(g *Grid, row int) ([]Span, error) {
	if err := m.Validate(g); err != nil {
		return nil, err
	}
	if row < 0 || row >= g.height {
		return nil, fmt.Errorf("%w: row %d outside grid", ErrInvalidInput, row)
	}
	var spans []Span
	m.scan(g, row, func(s Span) bool {
		spans = append(spans, s)
		return true
	})
	return spans, nil
}

func (m Merger) row(g *Grid, row int, yield func(Run) bool) bool {
	return m.scan(g, row, func(s Span) bool {
		return s.Transparent || yield(s.Run)
	})
}

// Runs validates g and returns the runs of every row in increasing row order.
// The sequence only reads g so it can be ranged over any number of times, and
// breaking out of it stops the scan.
func (m Merger) Runs(g *Grid) (iter.Seq[Run], error) {
	if err := m.Validate(g); err != nil {
		return nil, err
	}
	return func(yield func(Run) bool) {
		for row := 0; row < g.height; row++ {
			if !m.row(g, row, yield) {
				return
			}
		}
	}, nil
}

// Merge returns all runs of g.
func (m Merger) Merge(g *Grid) ([]Run, error) {
	seq, err := m.Runs(g)
	if err != nil {
		return nil, err
	}
	var out []Run
	for r := range seq {
		out = append(out, r)
	}
	return out, nil
}

// MergeParallel is Merge with rows shared between workers. The result is
// identical to Merge.
func (m Merger) MergeParallel(ctx context.Context, g *Grid, workers int) ([]Run, error) {
	if err := m.Validate(g); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	rows := make(chan int)
	results := make([][]Run, g.height)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for row := range rows {
				m.row(g, row, func(r Run) bool {
					results[row] = append(results[row], r)
					return true
				})
			}
		}()
	}

	var err error
feed:
	for row := 0; row < g.height; row++ {
		select {
		case rows <- row:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(rows)
	wg.Wait()

	if err != nil {
		return nil, err
	}

	var out []Run
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
