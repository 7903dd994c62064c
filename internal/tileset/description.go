// Package tileset turns on-disk tileset descriptions (Tiled .tsx, Tiled JSON,
// or the same JSON shape written as YAML) into wang catalogs.
package tileset

import (
	"fmt"
	"image"

	"tilecraft.ai/internal/wang"
)

// Description is the minimal tileset schema the resolver needs. Field names
// follow Tiled's JSON export.
type Description struct {
	Name        string    `json:"name" yaml:"name" jsonschema:"title=Tileset name,minLength=1"`
	TileWidth   int       `json:"tilewidth" yaml:"tilewidth" jsonschema:"minimum=1"`
	TileHeight  int       `json:"tileheight" yaml:"tileheight" jsonschema:"minimum=1"`
	Columns     int       `json:"columns" yaml:"columns" jsonschema:"minimum=1"`
	TileCount   int       `json:"tilecount" yaml:"tilecount" jsonschema:"minimum=0"`
	Margin      int       `json:"margin,omitempty" yaml:"margin,omitempty" jsonschema:"minimum=0"`
	Spacing     int       `json:"spacing,omitempty" yaml:"spacing,omitempty" jsonschema:"minimum=0"`
	Image       string    `json:"image,omitempty" yaml:"image,omitempty" jsonschema:"description=Tileset image path; never decoded here"`
	ImageWidth  int       `json:"imagewidth,omitempty" yaml:"imagewidth,omitempty" jsonschema:"minimum=0"`
	ImageHeight int       `json:"imageheight,omitempty" yaml:"imageheight,omitempty" jsonschema:"minimum=0"`
	WangSets    []WangSet `json:"wangsets" yaml:"wangsets"`

	// Digest is the sha256 of the source bytes, set by the parsers.
	Digest string `json:"-" yaml:"-"`
}

type WangSet struct {
	Name string `json:"name" yaml:"name" jsonschema:"minLength=1"`
	Type string `json:"type" yaml:"type" jsonschema:"enum=corner,enum=edge,enum=mixed"`
	// Tile is the set's representative tile; nil or -1 means none.
	Tile      *int        `json:"tile,omitempty" yaml:"tile,omitempty" jsonschema:"minimum=-1"`
	Colors    []WangColor `json:"colors" yaml:"colors"`
	WangTiles []WangTile  `json:"wangtiles" yaml:"wangtiles"`
}

type WangColor struct {
	Name  string `json:"name" yaml:"name" jsonschema:"minLength=1"`
	Color string `json:"color,omitempty" yaml:"color,omitempty" jsonschema:"description=Editor display color; unused by the resolver"`
	// Tile is the color's representative tile; nil or -1 means none.
	Tile *int `json:"tile,omitempty" yaml:"tile,omitempty" jsonschema:"minimum=-1"`
	// Probability defaults to 1 when absent.
	Probability *float64 `json:"probability,omitempty" yaml:"probability,omitempty"`
}

type WangTile struct {
	TileID int   `json:"tileid" yaml:"tileid" jsonschema:"minimum=0"`
	WangID []int `json:"wangid" yaml:"wangid"`
}

// Validate checks tileset-level geometry. Wang data is checked when a catalog
// is built.
func (d *Description) Validate() error {
	switch {
	case d.Name == "":
		return &wang.SchemaError{Reason: "tileset: empty name"}
	case d.TileWidth <= 0 || d.TileHeight <= 0:
		return &wang.SchemaError{Reason: fmt.Sprintf("tileset %q: invalid tile size %dx%d", d.Name, d.TileWidth, d.TileHeight)}
	case d.Columns <= 0:
		return &wang.SchemaError{Reason: fmt.Sprintf("tileset %q: invalid columns %d", d.Name, d.Columns)}
	case d.TileCount < 0:
		return &wang.SchemaError{Reason: fmt.Sprintf("tileset %q: invalid tilecount %d", d.Name, d.TileCount)}
	case d.Margin < 0 || d.Spacing < 0:
		return &wang.SchemaError{Reason: fmt.Sprintf("tileset %q: negative margin or spacing", d.Name)}
	}
	return nil
}

// TileRect is the source rectangle of tile id inside the tileset image.
func (d *Description) TileRect(id wang.TileID) (image.Rectangle, error) {
	if id < 0 || (d.TileCount > 0 && int(id) >= d.TileCount) {
		return image.Rectangle{}, fmt.Errorf("tileset %q: tile %d out of range", d.Name, id)
	}
	if d.Columns <= 0 {
		return image.Rectangle{}, fmt.Errorf("tileset %q: no columns", d.Name)
	}
	col := int(id) % d.Columns
	row := int(id) / d.Columns
	x := d.Margin + col*(d.TileWidth+d.Spacing)
	y := d.Margin + row*(d.TileHeight+d.Spacing)
	r := image.Rect(x, y, x+d.TileWidth, y+d.TileHeight)
	if d.ImageWidth > 0 && d.ImageHeight > 0 && !r.In(image.Rect(0, 0, d.ImageWidth, d.ImageHeight)) {
		return image.Rectangle{}, fmt.Errorf("tileset %q: tile %d lies outside the %dx%d image", d.Name, id, d.ImageWidth, d.ImageHeight)
	}
	return r, nil
}

// Set returns the wang set called name. An empty name selects the only set.
func (d *Description) Set(name string) (*WangSet, error) {
	if name == "" {
		if len(d.WangSets) != 1 {
			return nil, &wang.SchemaError{Reason: fmt.Sprintf("tileset %q: %d wang sets, name one", d.Name, len(d.WangSets))}
		}
		return &d.WangSets[0], nil
	}
	for i := range d.WangSets {
		if d.WangSets[i].Name == name {
			return &d.WangSets[i], nil
		}
	}
	return nil, &wang.SchemaError{Reason: fmt.Sprintf("tileset %q: no wang set %q", d.Name, name)}
}
