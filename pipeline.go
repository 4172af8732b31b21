package pixelquad

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/pixelquad/quad"
)

type job struct {
	file string
	rel  string
}

// findImages sends every visible image file under base to the returned
// channel until the walk finishes or ctx is cancelled.
func (p *PixelQuad) findImages(ctx context.Context, base string) (<-chan job, <-chan error, error) {
	jobs := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(jobs)
		defer close(errc)
		errc <- filepath.WalkDir(base, func(file string, d fs.DirEntry, err error) error {
			switch {
			case err != nil:
				return err
			case file == base:
				return nil
			case strings.HasPrefix(d.Name(), "."):
				// Hidden entries belong to other tools
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			case !d.Type().IsRegular() || !isImage(file):
				return nil
			}

			rel, err := filepath.Rel(base, file)
			if err != nil {
				return err
			}

			select {
			case jobs <- job{file: file, rel: rel}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return jobs, errc, nil
}

func (p *PixelQuad) imageWorker(ctx context.Context, in <-chan job, dir string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for j := range in {
			m, err := p.Convert(ctx, j.file)
			if err != nil {
				errc <- err
				return
			}

			target := filepath.Join(dir, strings.TrimSuffix(j.rel, filepath.Ext(j.rel))+quad.Extension)
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				errc <- err
				return
			}

			if err := WriteModel(target, m); err != nil {
				errc <- err
				return
			}

			p.logger.Debug("Wrote model", "file", target)
		}
	}()
	return errc, nil
}

// firstError waits for every stage to finish and returns the first error
// reported, returning early as soon as one arrives.
func firstError(stages ...<-chan error) error {
	done := make(chan error, len(stages))
	var wg sync.WaitGroup
	for _, stage := range stages {
		wg.Add(1)
		go func(errc <-chan error) {
			defer wg.Done()
			for err := range errc {
				if err != nil {
					done <- err
					return
				}
			}
		}(stage)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return <-done
}

// Batch converts every image found under path, writing each model into dir
// using the same relative path as the image.
func (p *PixelQuad) Batch(path, dir string) error {
	base, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	jobs, errc, err := p.findImages(ctx, base)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < p.config.Workers; i++ {
		errc, err := p.imageWorker(ctx, jobs, dir)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return firstError(errcList...)
}
