/*
Package pixelquad is a library for converting bitmap images into models made
of colored quads, one quad for each run of similar pixels in a row.
*/
package pixelquad

import (
	"github.com/charmbracelet/log"
)

// PixelQuad converts images and caches the resulting models.
type PixelQuad struct {
	db     *ModelDB
	logger *log.Logger
	config Config
}

// New opens the model database at file.
func New(file string, config Config, logger *log.Logger) (*PixelQuad, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := NewModelDB(file)
	if err != nil {
		return nil, err
	}

	return &PixelQuad{
		db:     db,
		logger: logger,
		config: config,
	}, nil
}

// Close closes the model database.
func (p *PixelQuad) Close() error {
	return p.db.Close()
}
