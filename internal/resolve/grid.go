package resolve

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"tilecraft.ai/internal/wang"
)

// CornerGrid is the resolver input: one terrain color per vertex of a
// Rows x Cols cell grid, stored row-major over (Rows+1) x (Cols+1) vertices.
// Neighboring cells read the same vertex, so they agree on shared corners by
// construction.
type CornerGrid struct {
	Rows     int
	Cols     int
	Vertices []wang.ColorID
}

// NewCornerGrid returns a grid with every vertex set to fill.
func NewCornerGrid(rows, cols int, fill wang.ColorID) (*CornerGrid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("corner grid: invalid size %dx%d", rows, cols)
	}
	g := &CornerGrid{Rows: rows, Cols: cols, Vertices: make([]wang.ColorID, (rows+1)*(cols+1))}
	if fill != wang.Wildcard {
		for i := range g.Vertices {
			g.Vertices[i] = fill
		}
	}
	return g, nil
}

func (g *CornerGrid) index(vr, vc int) int { return vr*(g.Cols+1) + vc }

// At returns the color of vertex (vr, vc), 0 <= vr <= Rows, 0 <= vc <= Cols.
func (g *CornerGrid) At(vr, vc int) wang.ColorID { return g.Vertices[g.index(vr, vc)] }

func (g *CornerGrid) Set(vr, vc int, c wang.ColorID) { g.Vertices[g.index(vr, vc)] = c }

// Cell returns the pattern required by cell (r, c): its top-left vertex is
// (r, c) and its bottom-right vertex is (r+1, c+1).
func (g *CornerGrid) Cell(r, c int) wang.Corners {
	return wang.CornersOf(g.At(r, c), g.At(r, c+1), g.At(r+1, c), g.At(r+1, c+1))
}

// Validate checks the shape and that every vertex is Wildcard or a color of p.
func (g *CornerGrid) Validate(p *wang.Palette) error {
	if g == nil {
		return &wang.SchemaError{Reason: "corner grid: nil"}
	}
	if g.Rows <= 0 || g.Cols <= 0 {
		return &wang.SchemaError{Reason: fmt.Sprintf("corner grid: invalid size %dx%d", g.Rows, g.Cols)}
	}
	if want := (g.Rows + 1) * (g.Cols + 1); len(g.Vertices) != want {
		return &wang.SchemaError{Reason: fmt.Sprintf("corner grid: %d vertices, want %d for %dx%d cells", len(g.Vertices), want, g.Rows, g.Cols)}
	}
	for i, v := range g.Vertices {
		if v != wang.Wildcard && !p.Has(v) {
			return &wang.SchemaError{Reason: fmt.Sprintf("corner grid: vertex (%d,%d) has unknown color %d", i/(g.Cols+1), i%(g.Cols+1), v)}
		}
	}
	return nil
}

// ResolvedGrid is the resolver output: one tile id per cell, row-major.
type ResolvedGrid struct {
	Rows  int           `json:"rows"`
	Cols  int           `json:"cols"`
	Tiles []wang.TileID `json:"tiles"`
}

func (g *ResolvedGrid) At(r, c int) wang.TileID { return g.Tiles[r*g.Cols+c] }

// Row returns the tiles of row r. The slice aliases the grid.
func (g *ResolvedGrid) Row(r int) []wang.TileID { return g.Tiles[r*g.Cols : (r+1)*g.Cols] }

// Digest is a sha256 over the grid size and tiles, used to compare runs.
func (g *ResolvedGrid) Digest() string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(g.Rows))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(g.Cols))
	h.Write(buf[:])
	for _, t := range g.Tiles {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(t))
		h.Write(buf[0:4])
	}
	return hex.EncodeToString(h.Sum(nil))
}
