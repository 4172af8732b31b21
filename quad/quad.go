/*
Package quad turns runs into quad geometry and implements the model file
written for each converted image.

Quads lie flat, rotated 90 degrees about the X axis, one unit above the
origin. Each quad is one unit deep and as wide as its run. The image's top row
ends up furthest from the origin so the model reads the same way up as the
image when viewed from above.
*/
package quad

import (
	"encoding/json"
	"image"
	"iter"
	"path/filepath"
	"strings"

	"github.com/bodgit/pixelquad/runs"
)

const elevation = 1

// Vec3 is a three component vector.
type Vec3 struct {
	X, Y, Z float64
}

// Quad is a single colored quad.
type Quad struct {
	Position Vec3
	Scale    Vec3
	Rotation Vec3
	Color    runs.Color
}

// FromRun returns the quad for r in a grid of the given height.
func FromRun(r runs.Run, height int) Quad {
	return Quad{
		Position: Vec3{float64(r.Start) + float64(r.Length)*0.5, elevation, float64(height - 1 - r.Row)},
		Scale:    Vec3{float64(r.Length), 1, 1},
		Rotation: Vec3{90, 0, 0},
		Color:    r.Color,
	}
}

// Model is the set of runs generated from one image.
type Model struct {
	Name   string
	Width  int
	Height int
	Runs   []runs.Run
}

// Name returns the model name used for an image file.
func Name(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-prefab"
}

// NewModel collects every run from seq.
func NewModel(name string, g *runs.Grid, seq iter.Seq[runs.Run]) *Model {
	m := &Model{
		Name:   name,
		Width:  g.Width(),
		Height: g.Height(),
	}
	for r := range seq {
		m.Runs = append(m.Runs, r)
	}
	return m
}

// Len returns the number of quads.
func (m *Model) Len() int {
	return len(m.Runs)
}

// Quads returns the quad for each run.
func (m *Model) Quads() []Quad {
	quads := make([]Quad, 0, len(m.Runs))
	for _, r := range m.Runs {
		quads = append(quads, FromRun(r, m.Height))
	}
	return quads
}

// Image draws the runs back into an image. Pixels not covered by a run are
// left transparent.
func (m *Model) Image() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for _, r := range m.Runs {
		for x := r.Start; x < r.End(); x++ {
			dst.Set(x, r.Row, r.Color)
		}
	}
	return dst
}

type jsonQuad struct {
	Position [3]float64 `json:"position"`
	Scale    [3]float64 `json:"scale"`
	Rotation [3]float64 `json:"rotation"`
	Color    [4]float64 `json:"color"`
}

type jsonModel struct {
	Name   string     `json:"name"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Quads  []jsonQuad `json:"quads"`
}

func (v Vec3) array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// MarshalJSON encodes the model as a list of quads.
func (m *Model) MarshalJSON() ([]byte, error) {
	out := jsonModel{
		Name:   m.Name,
		Width:  m.Width,
		Height: m.Height,
		Quads:  make([]jsonQuad, 0, len(m.Runs)),
	}
	for _, q := range m.Quads() {
		out.Quads = append(out.Quads, jsonQuad{
			Position: q.Position.array(),
			Scale:    q.Scale.array(),
			Rotation: q.Rotation.array(),
			Color:    [4]float64{q.Color.R, q.Color.G, q.Color.B, q.Color.A},
		})
	}
	return json.Marshal(out)
}
