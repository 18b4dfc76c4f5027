package bilevel

import (
	"github.com/esimov/bilevel/utils"
	"golang.org/x/sync/errgroup"
)

// rowsPerBand is the height of the row bands handed to the workers.
const rowsPerBand = 16

// eachRowBand splits the rows [0, height) into bands of rowsPerBand rows and calls fn for each of them,
// running at most workers bands concurrently. With one worker fn is called once for all rows.
func eachRowBand(height, workers int, fn func(y0, y1 int)) {
	if workers <= 1 || height <= rowsPerBand {
		fn(0, height)
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < height; y0 += rowsPerBand {
		y0, y1 := y0, utils.Min(y0+rowsPerBand, height)
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	// The bands never fail.
	_ = g.Wait()
}
