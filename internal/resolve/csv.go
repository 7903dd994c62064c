package resolve

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tilecraft.ai/internal/wang"
)

// ReadCornerCSV reads a vertex grid, one CSV record per vertex row. A field is
// a color name, a numeric color id, or "*" / empty for Wildcard.
func ReadCornerCSV(r io.Reader, p *wang.Palette) (*CornerGrid, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("corner csv: %w", err)
	}
	return CornerGridFromNames(records, p)
}

// CornerGridFromNames builds a vertex grid from rows of vertex fields, using
// the same field syntax as ReadCornerCSV. Every row must have the same length.
func CornerGridFromNames(records [][]string, p *wang.Palette) (*CornerGrid, error) {
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, &wang.SchemaError{Reason: "corner grid: need at least 2x2 vertices"}
	}

	g := &CornerGrid{Rows: len(records) - 1, Cols: len(records[0]) - 1}
	g.Vertices = make([]wang.ColorID, 0, len(records)*len(records[0]))
	for vr, rec := range records {
		if len(rec) != g.Cols+1 {
			return nil, &wang.SchemaError{Reason: fmt.Sprintf("corner grid: vertex row %d has %d fields, want %d", vr, len(rec), g.Cols+1)}
		}
		for vc, field := range rec {
			id, err := parseVertex(strings.TrimSpace(field), p)
			if err != nil {
				return nil, &wang.SchemaError{Reason: fmt.Sprintf("corner grid: vertex (%d,%d): %v", vr, vc, err)}
			}
			g.Vertices = append(g.Vertices, id)
		}
	}
	if err := g.Validate(p); err != nil {
		return nil, err
	}
	return g, nil
}

func parseVertex(field string, p *wang.Palette) (wang.ColorID, error) {
	if field == "" || field == "*" {
		return wang.Wildcard, nil
	}
	if n, err := strconv.Atoi(field); err == nil {
		if n == 0 {
			return wang.Wildcard, nil
		}
		if n < 0 || n > wang.MaxColors || !p.Has(wang.ColorID(n)) {
			return 0, fmt.Errorf("unknown color id %d", n)
		}
		return wang.ColorID(n), nil
	}
	c, ok := p.ByName(field)
	if !ok {
		return 0, fmt.Errorf("unknown color %q", field)
	}
	return c.ID, nil
}

// WriteCSV writes the vertex grid with color names.
func (g *CornerGrid) WriteCSV(w io.Writer, p *wang.Palette) error {
	cw := csv.NewWriter(w)
	rec := make([]string, g.Cols+1)
	for vr := 0; vr <= g.Rows; vr++ {
		for vc := 0; vc <= g.Cols; vc++ {
			rec[vc] = p.Name(g.At(vr, vc))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the tile ids as a Tiled CSV layer, one record per row.
func (g *ResolvedGrid) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	rec := make([]string, g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c, t := range g.Row(r) {
			rec[c] = strconv.Itoa(int(t))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadResolvedCSV parses a layer written by WriteCSV.
func ReadResolvedCSV(r io.Reader) (*ResolvedGrid, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tile csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tile csv: empty")
	}
	g := &ResolvedGrid{Rows: len(records), Cols: len(records[0])}
	g.Tiles = make([]wang.TileID, 0, g.Rows*g.Cols)
	for r, rec := range records {
		for c, field := range rec {
			n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("tile csv: cell (%d,%d): %w", r, c, err)
			}
			g.Tiles = append(g.Tiles, wang.TileID(n))
		}
	}
	return g, nil
}
