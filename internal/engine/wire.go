package engine

import (
	"errors"
	"fmt"

	"tilecraft.ai/internal/encoding"
	"tilecraft.ai/internal/protocol"
	"tilecraft.ai/internal/resolve"
	"tilecraft.ai/internal/wang"
)

// ResolveMsg decodes a RESOLVE message, resolves it and encodes the reply.
func (e *Engine) ResolveMsg(source string, m protocol.ResolveMsg) (protocol.ResolvedMsg, error) {
	if m.Encoding != "" && m.Encoding != encoding.RLE {
		return protocol.ResolvedMsg{}, BadRequest("unsupported encoding %q", m.Encoding)
	}
	grid, err := resolve.CornerGridFromNames(m.Corners, e.cat.Palette())
	if err != nil {
		return protocol.ResolvedMsg{}, err
	}
	res, err := e.Resolve(Request{Source: source, Grid: grid, Seed: m.Seed, Snapshot: m.Snapshot})
	if err != nil {
		return protocol.ResolvedMsg{}, err
	}
	out := protocol.ResolvedMsg{
		Type:            protocol.TypeResolved,
		ProtocolVersion: protocol.Version,
		RequestID:       m.RequestID,
		CatalogDigest:   e.cat.Digest(),
		Seed:            res.Seed,
		Rows:            res.Grid.Rows,
		Cols:            res.Grid.Cols,
		GridDigest:      res.Grid.Digest(),
		Snapshot:        res.SnapshotPath,
		DurationMS:      res.Duration.Milliseconds(),
	}
	if m.Encoding == encoding.RLE {
		out.Encoding = encoding.RLE
		out.TilesRLE = encoding.EncodeRLE(res.Grid.Tiles)
		return out, nil
	}
	out.Tiles = make([][]int32, res.Grid.Rows)
	for r := range out.Tiles {
		row := make([]int32, res.Grid.Cols)
		for c, t := range res.Grid.Row(r) {
			row[c] = int32(t)
		}
		out.Tiles[r] = row
	}
	return out, nil
}

// MatchMsg answers a MATCH message.
func (e *Engine) MatchMsg(m protocol.MatchMsg) (protocol.MatchResultMsg, error) {
	var ids [4]wang.ColorID
	for i, name := range [4]string{m.TopLeft, m.TopRight, m.BottomLeft, m.BottomRight} {
		id, err := e.colorID(name)
		if err != nil {
			return protocol.MatchResultMsg{}, err
		}
		ids[i] = id
	}
	cands := e.Match(wang.CornersOf(ids[0], ids[1], ids[2], ids[3]))
	out := protocol.MatchResultMsg{
		Type:            protocol.TypeMatchResult,
		ProtocolVersion: protocol.Version,
		RequestID:       m.RequestID,
		Candidates:      make([]protocol.TileRef, 0, len(cands)),
	}
	for _, t := range cands {
		out.Candidates = append(out.Candidates, e.tileRef(t))
	}
	return out, nil
}

func (e *Engine) colorID(name string) (wang.ColorID, error) {
	if name == "" || name == protocol.Wildcard {
		return wang.Wildcard, nil
	}
	c, ok := e.cat.Palette().ByName(name)
	if !ok {
		return 0, &wang.SchemaError{Reason: fmt.Sprintf("unknown color %q", name)}
	}
	return c.ID, nil
}

// cornerNames returns colors in [top_left, top_right, bottom_left, bottom_right] order.
func (e *Engine) cornerNames(c wang.Corners) [4]string {
	p := e.cat.Palette()
	return [4]string{
		p.Name(c[wang.TopLeft]),
		p.Name(c[wang.TopRight]),
		p.Name(c[wang.BottomLeft]),
		p.Name(c[wang.BottomRight]),
	}
}

func (e *Engine) tileRef(t wang.TileDefinition) protocol.TileRef {
	ref := protocol.TileRef{ID: int32(t.ID), Probability: t.Probability, Corners: e.cornerNames(t.Corners())}
	if r, err := e.desc.TileRect(t.ID); err == nil {
		ref.Rect = &[4]int{r.Min.X, r.Min.Y, r.Dx(), r.Dy()}
	}
	return ref
}

// CatalogMsg describes the loaded catalog.
func (e *Engine) CatalogMsg() protocol.CatalogMsg {
	out := protocol.CatalogMsg{
		Type:            protocol.TypeCatalog,
		ProtocolVersion: protocol.Version,
		Tileset: protocol.TilesetRef{
			Name:       e.desc.Name,
			TileWidth:  e.desc.TileWidth,
			TileHeight: e.desc.TileHeight,
			Columns:    e.desc.Columns,
			TileCount:  e.desc.TileCount,
			Image:      e.desc.Image,
			Digest:     e.desc.Digest,
		},
		WangSet: e.cat.Name(),
		Digest:  e.cat.Digest(),
	}
	for _, c := range e.cat.Palette().Colors() {
		ref := protocol.ColorRef{ID: int(c.ID), Name: c.Name, Probability: c.Probability}
		if c.Representative != nil {
			rep := int32(*c.Representative)
			ref.Representative = &rep
		}
		out.Colors = append(out.Colors, ref)
	}
	for _, t := range e.cat.Tiles() {
		out.Tiles = append(out.Tiles, e.tileRef(t))
	}
	return out
}

// ErrorMsg encodes err as an ERROR message.
func (e *Engine) ErrorMsg(requestID string, err error) protocol.ErrorMsg {
	out := protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		Code:            Code(err),
		Message:         err.Error(),
	}
	var cellErr *resolve.UnsatisfiableCellError
	if errors.As(err, &cellErr) {
		row, col := cellErr.Row, cellErr.Col
		pattern := e.cornerNames(cellErr.Pattern)
		out.Row, out.Col, out.Pattern = &row, &col, &pattern
	}
	return out
}

// BadRequest wraps a decoding failure for the transports.
func BadRequest(format string, args ...any) error {
	return &RequestError{Code: protocol.ErrBadRequest, Msg: fmt.Sprintf(format, args...)}
}
