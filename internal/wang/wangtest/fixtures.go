// Package wangtest builds in-memory catalogs for tests across packages.
package wangtest

import (
	"testing"

	"tilecraft.ai/internal/wang"
)

const (
	Dark  wang.ColorID = 1
	Light wang.ColorID = 2
)

// SampleTiles is the "test_terrain" corner set shipped in
// configs/tilesets/test_set.tsx: one tile for each of the 16 dark/light corner
// combinations.
var SampleTiles = []wang.TileSpec{
	{ID: 1, Signature: []int{0, 1, 0, 2, 0, 1, 0, 1}},
	{ID: 2, Signature: []int{0, 1, 0, 2, 0, 2, 0, 1}},
	{ID: 3, Signature: []int{0, 1, 0, 1, 0, 2, 0, 1}},
	{ID: 4, Signature: []int{0, 2, 0, 1, 0, 2, 0, 2}},
	{ID: 5, Signature: []int{0, 2, 0, 2, 0, 1, 0, 2}},
	{ID: 9, Signature: []int{0, 2, 0, 2, 0, 1, 0, 1}},
	{ID: 10, Signature: []int{0, 2, 0, 2, 0, 2, 0, 2}},
	{ID: 11, Signature: []int{0, 1, 0, 1, 0, 2, 0, 2}},
	{ID: 12, Signature: []int{0, 1, 0, 2, 0, 2, 0, 2}},
	{ID: 13, Signature: []int{0, 2, 0, 2, 0, 2, 0, 1}},
	{ID: 17, Signature: []int{0, 2, 0, 1, 0, 1, 0, 1}},
	{ID: 18, Signature: []int{0, 2, 0, 1, 0, 1, 0, 2}},
	{ID: 19, Signature: []int{0, 1, 0, 1, 0, 1, 0, 2}},
	{ID: 20, Signature: []int{0, 1, 0, 1, 0, 1, 0, 1}},
	{ID: 21, Signature: []int{0, 2, 0, 1, 0, 2, 0, 1}},
	{ID: 22, Signature: []int{0, 1, 0, 2, 0, 1, 0, 2}},
}

// Palette returns the dark/light palette with equal probabilities.
func Palette(t testing.TB) *wang.Palette {
	t.Helper()
	p, err := wang.NewPalette([]wang.ColorSpec{
		{Name: "dark", Probability: 1},
		{Name: "light", Probability: 1},
	})
	if err != nil {
		t.Fatalf("palette: %v", err)
	}
	return p
}

// Catalog builds a corner catalog over the sample palette.
func Catalog(t testing.TB, tiles []wang.TileSpec) *wang.Catalog {
	t.Helper()
	return CatalogWithPalette(t, Palette(t), tiles)
}

func CatalogWithPalette(t testing.TB, p *wang.Palette, tiles []wang.TileSpec) *wang.Catalog {
	t.Helper()
	c, err := wang.BuildCatalog(wang.CatalogSpec{
		Name:      "test_terrain",
		Type:      wang.SetCorner,
		TileCount: 64,
		Palette:   p,
		Tiles:     tiles,
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return c
}

// SampleCatalog is Catalog(t, SampleTiles).
func SampleCatalog(t testing.TB) *wang.Catalog {
	t.Helper()
	return Catalog(t, SampleTiles)
}

// Tiles picks the sample tiles with the given ids.
func Tiles(ids ...int) []wang.TileSpec {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []wang.TileSpec
	for _, ts := range SampleTiles {
		if want[ts.ID] {
			out = append(out, ts)
		}
	}
	return out
}
