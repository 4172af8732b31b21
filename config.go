package pixelquad

import (
	"errors"
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/bodgit/pixelquad/palette"
	"github.com/bodgit/pixelquad/runs"
)

const (
	defaultThreshold = 0.01
	defaultWorkers   = 10
)

// Config controls how images are converted.
type Config struct {
	// Merge neighbouring pixels in a row into a single quad
	Merge bool `toml:"merge"`
	// Threshold is the largest per channel difference that still merges
	Threshold float64 `toml:"threshold"`
	// Colors quantizes the image first if non-zero
	Colors int `toml:"colors"`
	// Workers is the number of images or rows processed at once
	Workers int `toml:"workers"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		Merge:     true,
		Threshold: defaultThreshold,
		Workers:   defaultWorkers,
	}
}

// LoadConfig reads a TOML config file. Anything not set in the file keeps its
// default value.
func LoadConfig(file string) (Config, error) {
	c := DefaultConfig()
	md, err := toml.DecodeFile(file, &c)
	if err != nil {
		return Config{}, err
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return Config{}, fmt.Errorf("config: unknown keys %v", keys)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("config: threshold %v outside [0,1]: %w", c.Threshold, runs.ErrInvalidInput)
	case c.Colors != 0 && (c.Colors < palette.MinColors || c.Colors > palette.MaxColors):
		return fmt.Errorf("config: colors must be 0 or between %d and %d", palette.MinColors, palette.MaxColors)
	case c.Workers < 1:
		return errors.New("config: need at least one worker")
	}
	return nil
}

func (c Config) merger() runs.Merger {
	return runs.Merger{
		Tolerance: c.Threshold,
		Disabled:  !c.Merge,
	}
}

// key identifies the options that change the output of a conversion.
func (c Config) key() string {
	if !c.Merge {
		return fmt.Sprintf("merge=false colors=%d", c.Colors)
	}
	return fmt.Sprintf("merge=true threshold=%g colors=%d", c.Threshold, c.Colors)
}
