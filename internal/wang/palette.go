package wang

import (
	"math"
	"strings"
)

// ColorID identifies a terrain color within one palette. Ids start at 1.
type ColorID uint8

// Wildcard is the reserved color id 0. In a tile signature it marks an unused
// slot; in a query pattern or corner grid it matches any color.
const Wildcard ColorID = 0

// MaxColors is the largest palette a ColorID can address.
const MaxColors = math.MaxUint8

// TileID is a tile index inside the tileset image, counted row-major from 0.
type TileID int32

type Color struct {
	ID          ColorID
	Name        string
	Probability float64
	// Representative is the tile shown for this color in editors, nil when none.
	Representative *TileID
}

// ColorSpec is the loader-facing description of one palette entry.
type ColorSpec struct {
	Name           string
	Probability    float64
	Representative *TileID
}

// Palette is the closed registry of terrain colors of one wang set.
// It is immutable once built.
type Palette struct {
	colors []Color // colors[i].ID == i+1
	byName map[string]ColorID
}

// NewPalette assigns ids 1..n in declaration order.
func NewPalette(specs []ColorSpec) (*Palette, error) {
	if len(specs) > MaxColors {
		return nil, schemaErrorf("palette has %d colors, max %d", len(specs), MaxColors)
	}
	p := &Palette{
		colors: make([]Color, 0, len(specs)),
		byName: make(map[string]ColorID, len(specs)),
	}
	for i, s := range specs {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, schemaErrorf("color %d: empty name", i+1)
		}
		if _, dup := p.byName[name]; dup {
			return nil, schemaErrorf("color %q: duplicate name", name)
		}
		if !(s.Probability > 0) || math.IsInf(s.Probability, 0) {
			return nil, schemaErrorf("color %q: probability must be positive, got %v", name, s.Probability)
		}
		if s.Representative != nil && *s.Representative < 0 {
			return nil, schemaErrorf("color %q: negative representative tile %d", name, *s.Representative)
		}
		id := ColorID(i + 1)
		var rep *TileID
		if s.Representative != nil {
			t := *s.Representative
			rep = &t
		}
		p.colors = append(p.colors, Color{ID: id, Name: name, Probability: s.Probability, Representative: rep})
		p.byName[name] = id
	}
	return p, nil
}

func (p *Palette) Len() int { return len(p.colors) }

// Has reports whether id is a registered color. Wildcard is not a color.
func (p *Palette) Has(id ColorID) bool {
	return id != Wildcard && int(id) <= len(p.colors)
}

func (p *Palette) ByID(id ColorID) (Color, bool) {
	if !p.Has(id) {
		return Color{}, false
	}
	return p.colors[id-1], true
}

func (p *Palette) ByName(name string) (Color, bool) {
	id, ok := p.byName[name]
	if !ok {
		return Color{}, false
	}
	return p.colors[id-1], true
}

// Colors returns a copy of the palette in id order.
func (p *Palette) Colors() []Color {
	out := make([]Color, len(p.colors))
	copy(out, p.colors)
	return out
}

// Name returns the color name for id, "*" for Wildcard and "?" for unknown ids.
func (p *Palette) Name(id ColorID) string {
	if id == Wildcard {
		return "*"
	}
	c, ok := p.ByID(id)
	if !ok {
		return "?"
	}
	return c.Name
}
