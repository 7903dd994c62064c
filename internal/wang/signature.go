package wang

import (
	"fmt"
	"strconv"
	"strings"
)

// SignatureLen is the number of slots in a wangid.
const SignatureLen = 8

// Signature is a tile's wangid in Tiled order, clockwise from the top edge:
//
//	0 top, 1 top-right, 2 right, 3 bottom-right,
//	4 bottom, 5 bottom-left, 6 left, 7 top-left.
//
// Even slots are edges and odd slots are corners.
type Signature [SignatureLen]ColorID

// Corner positions of a Corners pattern, clockwise from the top-right corner.
const (
	TopRight = iota
	BottomRight
	BottomLeft
	TopLeft
)

// Corners holds the four corner colors of a tile or a query, indexed by
// TopRight, BottomRight, BottomLeft, TopLeft. Wildcard slots match anything.
type Corners [4]ColorID

// ParseSignature converts a raw wangid into a Signature. It only checks shape;
// color membership is checked against a palette by BuildCatalog.
func ParseSignature(raw []int) (Signature, error) {
	var s Signature
	if len(raw) != SignatureLen {
		return s, schemaErrorf("signature has %d slots, want %d", len(raw), SignatureLen)
	}
	for i, v := range raw {
		if v < 0 || v > MaxColors {
			return s, schemaErrorf("signature slot %d: color id %d out of range", i, v)
		}
		s[i] = ColorID(v)
	}
	return s, nil
}

// Corners extracts slots 1, 3, 5 and 7.
func (s Signature) Corners() Corners {
	return Corners{s[1], s[3], s[5], s[7]}
}

func (s Signature) String() string {
	var b strings.Builder
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	return b.String()
}

// CornerSignature builds the corner-set signature carrying c.
func CornerSignature(c Corners) Signature {
	return Signature{0, c[TopRight], 0, c[BottomRight], 0, c[BottomLeft], 0, c[TopLeft]}
}

// CornersOf builds a pattern from the four vertices around a cell, given in
// reading order. This is the single place grid addressing meets signature order.
func CornersOf(topLeft, topRight, bottomLeft, bottomRight ColorID) Corners {
	var c Corners
	c[TopLeft] = topLeft
	c[TopRight] = topRight
	c[BottomLeft] = bottomLeft
	c[BottomRight] = bottomRight
	return c
}

// IsWildcard reports whether every slot is Wildcard.
func (c Corners) IsWildcard() bool {
	return c == Corners{}
}

func (c Corners) String() string {
	return fmt.Sprintf("tr=%d br=%d bl=%d tl=%d", c[TopRight], c[BottomRight], c[BottomLeft], c[TopLeft])
}

// Describe renders the pattern with palette color names.
func (c Corners) Describe(p *Palette) string {
	return fmt.Sprintf("tr=%s br=%s bl=%s tl=%s",
		p.Name(c[TopRight]), p.Name(c[BottomRight]), p.Name(c[BottomLeft]), p.Name(c[TopLeft]))
}
