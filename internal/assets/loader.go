// Package assets loads raster assets off the playback goroutine.
//
// Loads return a scheduler.Future immediately; decoding happens on a
// bounded worker pool. A routine awaits the Future at its suspension
// point, which is the only place asynchronous work meets the otherwise
// strictly sequential playback loop. Load failures surface at the await,
// where the routine may handle them or fail the scene; there is no
// automatic retry.
package assets

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/stagehand-io/stagehand/internal/scheduler"
)

// DefaultParallelism bounds concurrent decodes when no limit is given.
const DefaultParallelism = 4

// Loader decodes image assets on a bounded pool of goroutines.
type Loader struct {
	g *errgroup.Group
}

// NewLoader creates a Loader running at most parallelism decodes at
// once. Non-positive values use DefaultParallelism.
func NewLoader(parallelism int) *Loader {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	g := new(errgroup.Group)
	g.SetLimit(parallelism)
	return &Loader{g: g}
}

// Image starts loading the image at path and returns its Future. The
// Future settles with an image.Image or the open/decode error.
func (l *Loader) Image(path string) *scheduler.Future {
	fut := scheduler.NewFuture()
	l.g.Go(func() error {
		f, err := os.Open(path)
		if err != nil {
			fut.Reject(fmt.Errorf("open image %q: %w", path, err))
			return nil
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			fut.Reject(fmt.Errorf("decode image %q: %w", path, err))
			return nil
		}
		fut.Resolve(img)
		return nil
	})
	return fut
}

// Flush blocks until all pending loads have settled their Futures.
// Errors are delivered through the Futures, never here.
func (l *Loader) Flush() {
	_ = l.g.Wait()
}
