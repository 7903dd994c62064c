package wang

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
)

// SetType is the wang-set kind declared by the tileset.
type SetType string

const (
	SetCorner SetType = "corner"
	SetEdge   SetType = "edge"
	SetMixed  SetType = "mixed"
)

// TileDefinition is one tile with a terrain role.
type TileDefinition struct {
	ID        TileID
	Signature Signature
	// Probability is the selection weight, inherited from the color this tile
	// represents, 1 otherwise.
	Probability float64
}

func (t TileDefinition) Corners() Corners { return t.Signature.Corners() }

// TileSpec is the loader-facing description of one wang tile.
type TileSpec struct {
	ID        int
	Signature []int
}

// CatalogSpec is everything BuildCatalog needs. TileCount bounds tile ids
// when positive.
type CatalogSpec struct {
	Name      string
	Type      SetType
	TileCount int
	Palette   *Palette
	Tiles     []TileSpec
}

// Catalog is the immutable signature index of one corner wang set. It is safe
// for concurrent use.
type Catalog struct {
	name    string
	palette *Palette

	// tiles is kept in candidate order: probability desc, id asc.
	tiles []TileDefinition
	byID  map[TileID]int

	exact map[Corners][]int
	slots [4]map[ColorID][]int

	digest string
}

// BuildCatalog validates spec and indexes its tiles. On error no catalog is
// returned.
func BuildCatalog(spec CatalogSpec) (*Catalog, error) {
	switch spec.Type {
	case SetCorner:
	case SetEdge, SetMixed:
		return nil, schemaErrorf("wang set %q: type %q is not supported, only %q", spec.Name, spec.Type, SetCorner)
	default:
		return nil, schemaErrorf("wang set %q: unknown type %q", spec.Name, spec.Type)
	}
	if spec.Palette == nil {
		return nil, schemaErrorf("wang set %q: missing palette", spec.Name)
	}

	c := &Catalog{
		name:    spec.Name,
		palette: spec.Palette,
		byID:    make(map[TileID]int, len(spec.Tiles)),
		exact:   make(map[Corners][]int),
	}
	for i := range c.slots {
		c.slots[i] = make(map[ColorID][]int)
	}

	weights := representativeWeights(spec.Palette)
	seen := make(map[TileID]struct{}, len(spec.Tiles))
	defs := make([]TileDefinition, 0, len(spec.Tiles))
	for _, ts := range spec.Tiles {
		if ts.ID < 0 || ts.ID > math.MaxInt32 {
			return nil, schemaErrorf("tile %d: id out of range", ts.ID)
		}
		if spec.TileCount > 0 && ts.ID >= spec.TileCount {
			return nil, schemaErrorf("tile %d: id beyond tilecount %d", ts.ID, spec.TileCount)
		}
		id := TileID(ts.ID)
		if _, dup := seen[id]; dup {
			return nil, schemaErrorf("tile %d: duplicate tile id", ts.ID)
		}
		seen[id] = struct{}{}

		sig, err := ParseSignature(ts.Signature)
		if err != nil {
			return nil, schemaErrorf("tile %d: %s", ts.ID, err.(*SchemaError).Reason)
		}
		for slot, v := range sig {
			if slot%2 == 0 {
				if v != Wildcard {
					return nil, schemaErrorf("tile %d: edge slot %d is %d in a corner set", ts.ID, slot, v)
				}
				continue
			}
			if v != Wildcard && !spec.Palette.Has(v) {
				return nil, schemaErrorf("tile %d: slot %d references unknown color %d", ts.ID, slot, v)
			}
		}

		w, ok := weights[id]
		if !ok {
			w = 1
		}
		defs = append(defs, TileDefinition{ID: id, Signature: sig, Probability: w})
	}

	sort.SliceStable(defs, func(i, j int) bool { return candidateLess(defs[i], defs[j]) })
	c.tiles = defs
	for i, t := range defs {
		c.byID[t.ID] = i
		k := t.Corners()
		c.exact[k] = append(c.exact[k], i)
		for slot, v := range k {
			c.slots[slot][v] = append(c.slots[slot][v], i)
		}
	}
	c.digest = catalogDigest(spec.Name, spec.Palette, defs)
	return c, nil
}

// representativeWeights maps each representative tile to its color's
// probability. When several colors name the same tile the lowest id wins.
func representativeWeights(p *Palette) map[TileID]float64 {
	out := map[TileID]float64{}
	for _, col := range p.colors {
		if col.Representative == nil {
			continue
		}
		if _, ok := out[*col.Representative]; ok {
			continue
		}
		out[*col.Representative] = col.Probability
	}
	return out
}

func candidateLess(a, b TileDefinition) bool {
	if a.Probability != b.Probability {
		return a.Probability > b.Probability
	}
	return a.ID < b.ID
}

func (c *Catalog) Name() string      { return c.name }
func (c *Catalog) Palette() *Palette { return c.palette }
func (c *Catalog) Len() int          { return len(c.tiles) }
func (c *Catalog) Digest() string    { return c.digest }

// Tile returns the definition of id, if id has a terrain role.
func (c *Catalog) Tile(id TileID) (TileDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return TileDefinition{}, false
	}
	return c.tiles[i], true
}

// Tiles returns all definitions in candidate order.
func (c *Catalog) Tiles() []TileDefinition {
	out := make([]TileDefinition, len(c.tiles))
	copy(out, c.tiles)
	return out
}

// CandidatesFor returns the tiles compatible with required, sorted by
// descending probability and then ascending tile id. Fully specified patterns
// are a single map lookup; patterns with wildcards scan the smallest bucket of
// a fixed slot.
func (c *Catalog) CandidatesFor(required Corners) []TileDefinition {
	if required.IsWildcard() {
		return c.Tiles()
	}

	var (
		bucket []int
		fixed  int
	)
	for slot, v := range required {
		if v == Wildcard {
			continue
		}
		fixed++
		b := c.slots[slot][v]
		if bucket == nil || len(b) < len(bucket) {
			bucket = b
		}
		if len(b) == 0 {
			return nil
		}
	}
	if fixed == len(required) {
		bucket = c.exact[required]
	}

	out := make([]TileDefinition, 0, len(bucket))
	for _, i := range bucket {
		if Matches(c.tiles[i], required) {
			out = append(out, c.tiles[i])
		}
	}
	return out
}

type digestTile struct {
	ID          TileID    `json:"id"`
	Signature   Signature `json:"wangid"`
	Probability float64   `json:"probability"`
}

type digestColor struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

func catalogDigest(name string, p *Palette, defs []TileDefinition) string {
	tiles := make([]digestTile, 0, len(defs))
	for _, t := range defs {
		tiles = append(tiles, digestTile{ID: t.ID, Signature: t.Signature, Probability: t.Probability})
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].ID < tiles[j].ID })
	colors := make([]digestColor, 0, p.Len())
	for _, col := range p.colors {
		colors = append(colors, digestColor{Name: col.Name, Probability: col.Probability})
	}
	b, _ := json.Marshal(struct {
		Name   string        `json:"name"`
		Colors []digestColor `json:"colors"`
		Tiles  []digestTile  `json:"tiles"`
	}{name, colors, tiles})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
