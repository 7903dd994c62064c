package tileset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tilecraft.ai/internal/wang"
)

// LoadFile reads a tileset description, picking the parser by extension:
// .tsx/.xml, .json/.tsj, .yaml/.yml.
func LoadFile(path string) (*Description, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d *Description
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tsx", ".xml":
		d, err = ParseTSX(raw)
	case ".json", ".tsj":
		d, err = ParseJSON(raw)
	case ".yaml", ".yml":
		d, err = ParseYAML(raw)
	default:
		return nil, fmt.Errorf("%s: unsupported tileset format %q", filepath.Base(path), ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return d, nil
}

// LoadCatalog builds the palette and signature catalog of one wang set. An
// empty name selects the only set. Any problem is a *wang.SchemaError and no
// catalog is returned.
func LoadCatalog(d *Description, wangSet string) (*wang.Catalog, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	ws, err := d.Set(wangSet)
	if err != nil {
		return nil, err
	}

	specs := make([]wang.ColorSpec, 0, len(ws.Colors))
	for _, c := range ws.Colors {
		spec := wang.ColorSpec{Name: c.Name, Probability: 1}
		if c.Probability != nil {
			spec.Probability = *c.Probability
		}
		if c.Tile != nil && *c.Tile >= 0 {
			t := wang.TileID(*c.Tile)
			spec.Representative = &t
		}
		specs = append(specs, spec)
	}
	pal, err := wang.NewPalette(specs)
	if err != nil {
		return nil, fmt.Errorf("wang set %q: %w", ws.Name, err)
	}

	tiles := make([]wang.TileSpec, 0, len(ws.WangTiles))
	for _, wt := range ws.WangTiles {
		tiles = append(tiles, wang.TileSpec{ID: wt.TileID, Signature: wt.WangID})
	}
	return wang.BuildCatalog(wang.CatalogSpec{
		Name:      ws.Name,
		Type:      wang.SetType(ws.Type),
		TileCount: d.TileCount,
		Palette:   pal,
		Tiles:     tiles,
	})
}

// LoadCatalogFile is LoadFile followed by LoadCatalog.
func LoadCatalogFile(path, wangSet string) (*wang.Catalog, *Description, error) {
	d, err := LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	cat, err := LoadCatalog(d, wangSet)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cat, d, nil
}
