package resolve

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tilecraft.ai/internal/logic/mathx"
	"tilecraft.ai/internal/wang"
)

// ErrUnsatisfiable is matched by every *UnsatisfiableCellError via errors.Is.
var ErrUnsatisfiable = errors.New("resolve: unsatisfiable cell")

// UnsatisfiableCellError names the first cell, in row-major order, whose
// required corners no tile of the catalog provides. It means the tileset lacks
// coverage for that terrain combination; retrying cannot help.
type UnsatisfiableCellError struct {
	Row     int
	Col     int
	Pattern wang.Corners
}

func (e *UnsatisfiableCellError) Error() string {
	return fmt.Sprintf("resolve: cell (%d,%d): no tile for corners %s", e.Row, e.Col, e.Pattern)
}

func (e *UnsatisfiableCellError) Is(target error) bool { return target == ErrUnsatisfiable }

type options struct {
	workers int
}

type Option func(*options)

// WithWorkers bounds the number of rows resolved concurrently. Values < 1
// mean GOMAXPROCS. The output does not depend on it.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Resolve picks one tile per cell of grid. Each cell only depends on its own
// four vertices, so rows are resolved in parallel; row r draws from its own
// generator seeded from (seed, r), which keeps the output identical for any
// worker count or schedule.
//
// On failure no grid is returned. Vertex colors must be Wildcard or members of
// the catalog's palette, otherwise a *wang.SchemaError is returned.
func Resolve(cat *wang.Catalog, grid *CornerGrid, seed int64, opts ...Option) (*ResolvedGrid, error) {
	if cat == nil {
		return nil, errors.New("resolve: nil catalog")
	}
	if err := grid.Validate(cat.Palette()); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	out := &ResolvedGrid{Rows: grid.Rows, Cols: grid.Cols, Tiles: make([]wang.TileID, grid.Rows*grid.Cols)}
	rowErrs := make([]error, grid.Rows)

	// Lowest failing row so far. Later rows can be skipped; earlier rows still
	// run so the reported cell is the row-major first one.
	var firstBad atomic.Int64
	firstBad.Store(math.MaxInt64)

	var g errgroup.Group
	g.SetLimit(o.workers)
	for r := 0; r < grid.Rows; r++ {
		g.Go(func() error {
			if int64(r) > firstBad.Load() {
				return nil
			}
			if err := resolveRow(cat, grid, seed, r, out.Row(r)); err != nil {
				rowErrs[r] = err
				lowerTo(&firstBad, int64(r))
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range rowErrs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func resolveRow(cat *wang.Catalog, grid *CornerGrid, seed int64, r int, dst []wang.TileID) error {
	rng := wang.NewRand(seed, mathx.RowStream(seed, r))
	for c := 0; c < grid.Cols; c++ {
		pattern := grid.Cell(r, c)
		cands := wang.Match(cat, pattern)
		if len(cands) == 0 {
			return &UnsatisfiableCellError{Row: r, Col: c, Pattern: pattern}
		}
		tile, err := wang.Choose(cands, rng)
		if err != nil {
			return err
		}
		dst[c] = tile.ID
	}
	return nil
}

func lowerTo(v *atomic.Int64, n int64) {
	for {
		cur := v.Load()
		if n >= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}
