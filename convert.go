package pixelquad

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bodgit/pixelquad/palette"
	"github.com/bodgit/pixelquad/quad"
	"github.com/bodgit/pixelquad/runs"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

func isImage(file string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(file))]
	return ok
}

func decodeFile(file string) (image.Image, string, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, "", err
	}

	m, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", file, err)
	}

	return m, fmt.Sprintf("%X", sha1.Sum(b)), nil
}

// Convert converts the image file into a model. Models are cached so
// converting the same image with the same options again reuses the result.
func (p *PixelQuad) Convert(ctx context.Context, file string) (*quad.Model, error) {
	m, sha, err := decodeFile(file)
	if err != nil {
		return nil, err
	}

	key := p.config.key()
	name := quad.Name(file)

	cached, err := p.db.FindModel(sha, key)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		p.logger.Debug("Using cached model", "file", file, "quads", cached.Len())
		cached.Name = name
		return cached, nil
	}

	if p.config.Colors > 0 {
		before := palette.Unique(m)
		if m, err = palette.Quantize(m, p.config.Colors); err != nil {
			return nil, err
		}
		p.logger.Debug("Quantized image", "file", file, "before", before, "after", palette.Unique(m))
	}

	grid, err := runs.GridFromImage(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	if grid.Width()*grid.Height() > warnPixels {
		p.logger.Warn("Large image may create an excessive number of quads", "file", file, "width", grid.Width(), "height", grid.Height())
	}

	rs, err := p.config.merger().MergeParallel(ctx, grid, p.config.Workers)
	if err != nil {
		return nil, err
	}
	model := quad.NewModel(name, grid, slices.Values(rs))

	id, err := p.db.StoreModel(sha, key, model)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Converted image", "file", file, "id", id, "quads", model.Len())

	return model, nil
}

const warnPixels = 256 * 256

// WriteModel writes m to file, as JSON if the file has a .json extension and
// in binary form otherwise.
func WriteModel(file string, m *quad.Model) error {
	var (
		b   []byte
		err error
	)
	if strings.EqualFold(filepath.Ext(file), ".json") {
		b, err = json.MarshalIndent(m, "", "  ")
	} else {
		b, err = m.MarshalBinary()
	}
	if err != nil {
		return err
	}
	return os.WriteFile(file, b, 0o644)
}

// ReadModel reads a model written in binary form by WriteModel.
func ReadModel(file string) (*quad.Model, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	m := new(quad.Model)
	if err := m.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return m, nil
}

// WritePreview draws m as a PNG image.
func WritePreview(file string, m *quad.Model) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, m.Image()); err != nil {
		return err
	}
	return f.Close()
}
