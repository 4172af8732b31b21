package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/pixelquad"
	"github.com/bodgit/pixelquad/htmlart"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"
)

const defaultDB = "pixelquad.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	level := log.WarnLevel
	if c.Bool("verbose") {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func loadConfig(c *cli.Context) (pixelquad.Config, error) {
	config := pixelquad.DefaultConfig()
	if file := c.String("config"); file != "" {
		var err error
		if config, err = pixelquad.LoadConfig(file); err != nil {
			return config, err
		}
	}

	if c.IsSet("merge") {
		config.Merge = c.Bool("merge")
	}
	if c.IsSet("threshold") {
		config.Threshold = c.Float64("threshold")
	}
	if c.IsSet("colors") {
		config.Colors = c.Int("colors")
	}
	if c.IsSet("workers") {
		config.Workers = c.Int("workers")
	}

	return config, config.Validate()
}

func open(c *cli.Context) (*pixelquad.PixelQuad, *log.Logger, error) {
	logger := newLogger(c)

	config, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	p, err := pixelquad.New(c.String("db"), config, logger)
	if err != nil {
		return nil, nil, err
	}

	return p, logger, nil
}

func convertFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "merge",
			EnvVars: []string{"PIXELQUAD_MERGE"},
			Value:   true,
			Usage:   "merge neighbouring pixels in a row with a similar color into a single quad",
		},
		&cli.Float64Flag{
			Name:    "threshold",
			EnvVars: []string{"PIXELQUAD_THRESHOLD"},
			Value:   0.01,
			Usage:   "largest difference in any of red, green or blue that still merges, alpha is ignored",
		},
		&cli.IntFlag{
			Name:    "colors",
			EnvVars: []string{"PIXELQUAD_COLORS"},
			Usage:   "quantize the image to this many colors first, 0 to disable",
		},
		&cli.IntFlag{
			Name:    "workers",
			EnvVars: []string{"PIXELQUAD_WORKERS"},
			Value:   10,
			Usage:   "number of images or rows processed at once",
		},
	}
}

func readInput(name string) (string, error) {
	var r io.Reader = os.Stdin
	if name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func main() {
	app := cli.NewApp()

	app.Name = "pixelquad"
	app.Usage = "Image to colored quad model conversion utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"PIXELQUAD_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to model cache database",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"PIXELQUAD_CONFIG"},
			Usage:   "path to TOML config file",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert an image into a quad model",
			Description: "Writes the model as JSON if OUTPUT ends in .json, otherwise in binary form.",
			ArgsUsage:   "IMAGE [OUTPUT]",
			Flags: append(convertFlags(), &cli.StringFlag{
				Name:  "preview",
				Usage: "also draw the model into this PNG file",
			}),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				p, logger, err := open(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer p.Close()

				file := c.Args().First()
				m, err := p.Convert(context.Background(), file)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				out := c.Args().Get(1)
				if out == "" {
					out = strings.TrimSuffix(file, filepath.Ext(file)) + ".json"
				}
				if err := pixelquad.WriteModel(out, m); err != nil {
					return cli.NewExitError(err, 1)
				}
				logger.Info("Wrote model", "file", out, "quads", m.Len())

				if preview := c.String("preview"); preview != "" {
					if err := pixelquad.WritePreview(preview, m); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				return nil
			},
		},
		{
			Name:        "batch",
			Usage:       "Convert every image in a directory",
			Description: "Models are written in binary form into OUTPUT mirroring the layout of DIRECTORY.",
			ArgsUsage:   "DIRECTORY OUTPUT",
			Flags:       convertFlags(),
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				p, _, err := open(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer p.Close()

				if err := p.Batch(c.Args().Get(0), c.Args().Get(1)); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "html",
			Usage:       "Convert HTML text art into rich text",
			Description: "Reads FILE, or standard input if omitted, and prints the rich text.",
			ArgsUsage:   "[FILE]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "sanitize",
					Usage: "strip everything but colored text before converting",
				},
			},
			Action: func(c *cli.Context) error {
				logger := newLogger(c)

				html, err := readInput(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if c.Bool("sanitize") {
					html = htmlart.Sanitize(html)
				}

				r := htmlart.Convert(html)
				logger.Info("Converted text art", "width", r.Width, "height", r.Height, "ratio", fmt.Sprintf("%.2f : 1", r.Ratio()), "visible", r.VisibleChars, "bytes", r.Bytes())

				if !r.Fits() {
					logger.Warn("Output is too large for a text component", "bytes", r.Bytes(), "limit", htmlart.ByteLimit)
				}

				fmt.Println(r.Text)

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
