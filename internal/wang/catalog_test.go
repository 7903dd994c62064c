package wang_test

import (
	"errors"
	"testing"

	"tilecraft.ai/internal/wang"
	"tilecraft.ai/internal/wang/wangtest"
)

func TestMatch_EveryTileMatchesItsOwnCorners(t *testing.T) {
	cat := wangtest.SampleCatalog(t)
	for _, tile := range cat.Tiles() {
		got := wang.Match(cat, tile.Corners())
		found := false
		for _, g := range got {
			if g.ID == tile.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("tile %d not returned for its own corners %s", tile.ID, tile.Corners())
		}
	}
}

func TestMatch_NoFalsePositives(t *testing.T) {
	cat := wangtest.SampleCatalog(t)
	values := []wang.ColorID{wang.Wildcard, wangtest.Dark, wangtest.Light}

	var patterns []wang.Corners
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				for _, d := range values {
					patterns = append(patterns, wang.Corners{a, b, c, d})
				}
			}
		}
	}

	for _, p := range patterns {
		got := wang.Match(cat, p)
		inResult := map[wang.TileID]bool{}
		for _, tile := range got {
			inResult[tile.ID] = true
			corners := tile.Corners()
			for i, want := range p {
				if want != wang.Wildcard && corners[i] != want {
					t.Fatalf("pattern %s returned tile %d with corners %s", p, tile.ID, corners)
				}
			}
		}
		// Linear scan agrees with the index.
		for _, tile := range cat.Tiles() {
			if wang.Matches(tile, p) != inResult[tile.ID] {
				t.Fatalf("pattern %s: index and scan disagree on tile %d", p, tile.ID)
			}
		}
	}
}

func TestMatch_AllWildcardReturnsEveryTile(t *testing.T) {
	cat := wangtest.SampleCatalog(t)
	if got := wang.Match(cat, wang.Corners{}); len(got) != len(wangtest.SampleTiles) {
		t.Fatalf("expected %d tiles, got %d", len(wangtest.SampleTiles), len(got))
	}
}

func TestMatch_EmptyIsNotAnError(t *testing.T) {
	cat := wangtest.Catalog(t, wangtest.Tiles(10, 20))
	got := wang.Match(cat, wang.Corners{wangtest.Dark, wangtest.Light, wangtest.Dark, wangtest.Light})
	if len(got) != 0 {
		t.Fatalf("expected no match, got %v", got)
	}
	if got := wang.Match(nil, wang.Corners{}); got != nil {
		t.Fatalf("nil catalog should match nothing, got %v", got)
	}
}

func TestCatalog_OrientationTile2(t *testing.T) {
	cat := wangtest.SampleCatalog(t)
	// Top edge dark, bottom edge light.
	p := wang.CornersOf(wangtest.Dark, wangtest.Dark, wangtest.Light, wangtest.Light)
	got := wang.Match(cat, p)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected only tile 2 for %s, got %v", p, got)
	}

	tile, ok := cat.Tile(2)
	if !ok {
		t.Fatalf("tile 2 missing")
	}
	c := tile.Corners()
	if c[wang.TopRight] != wangtest.Dark || c[wang.BottomRight] != wangtest.Light ||
		c[wang.BottomLeft] != wangtest.Light || c[wang.TopLeft] != wangtest.Dark {
		t.Fatalf("tile 2 corners decoded as %s", c)
	}
}

func TestCatalog_CandidateOrder(t *testing.T) {
	rep := wang.TileID(30)
	p, err := wang.NewPalette([]wang.ColorSpec{
		{Name: "dark", Probability: 1},
		{Name: "light", Probability: 4, Representative: &rep},
	})
	if err != nil {
		t.Fatalf("palette: %v", err)
	}
	allLight := []int{0, 2, 0, 2, 0, 2, 0, 2}
	cat := wangtest.CatalogWithPalette(t, p, []wang.TileSpec{
		{ID: 40, Signature: allLight},
		{ID: 10, Signature: allLight},
		{ID: 30, Signature: allLight},
	})

	got := cat.CandidatesFor(wang.Corners{wangtest.Light, wangtest.Light, wangtest.Light, wangtest.Light})
	want := []wang.TileID{30, 10, 40}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("candidate %d: want tile %d got %d (all=%v)", i, want[i], got[i].ID, got)
		}
	}
	if got[0].Probability != 4 || got[1].Probability != 1 {
		t.Fatalf("unexpected weights: %v", got)
	}
}

func TestBuildCatalog_SchemaErrors(t *testing.T) {
	cases := []struct {
		name string
		spec func(p *wang.Palette) wang.CatalogSpec
	}{
		{"short signature", func(p *wang.Palette) wang.CatalogSpec {
			return cornerSpec(p, wang.TileSpec{ID: 1, Signature: []int{0, 1, 0, 1, 0, 1, 0}})
		}},
		{"unknown color", func(p *wang.Palette) wang.CatalogSpec {
			return cornerSpec(p, wang.TileSpec{ID: 1, Signature: []int{0, 1, 0, 3, 0, 1, 0, 1}})
		}},
		{"edge slot set", func(p *wang.Palette) wang.CatalogSpec {
			return cornerSpec(p, wang.TileSpec{ID: 1, Signature: []int{1, 1, 0, 1, 0, 1, 0, 1}})
		}},
		{"duplicate tile", func(p *wang.Palette) wang.CatalogSpec {
			return cornerSpec(p,
				wang.TileSpec{ID: 1, Signature: []int{0, 1, 0, 1, 0, 1, 0, 1}},
				wang.TileSpec{ID: 1, Signature: []int{0, 2, 0, 2, 0, 2, 0, 2}})
		}},
		{"negative tile", func(p *wang.Palette) wang.CatalogSpec {
			return cornerSpec(p, wang.TileSpec{ID: -1, Signature: []int{0, 1, 0, 1, 0, 1, 0, 1}})
		}},
		{"tile beyond tilecount", func(p *wang.Palette) wang.CatalogSpec {
			return cornerSpec(p, wang.TileSpec{ID: 64, Signature: []int{0, 1, 0, 1, 0, 1, 0, 1}})
		}},
		{"edge set", func(p *wang.Palette) wang.CatalogSpec {
			s := cornerSpec(p)
			s.Type = wang.SetEdge
			return s
		}},
		{"mixed set", func(p *wang.Palette) wang.CatalogSpec {
			s := cornerSpec(p)
			s.Type = wang.SetMixed
			return s
		}},
		{"unknown set type", func(p *wang.Palette) wang.CatalogSpec {
			s := cornerSpec(p)
			s.Type = "diagonal"
			return s
		}},
		{"missing palette", func(*wang.Palette) wang.CatalogSpec {
			return wang.CatalogSpec{Name: "x", Type: wang.SetCorner}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cat, err := wang.BuildCatalog(tc.spec(wangtest.Palette(t)))
			if err == nil {
				t.Fatalf("expected schema error")
			}
			if cat != nil {
				t.Fatalf("expected no partial catalog")
			}
			var se *wang.SchemaError
			if !errors.As(err, &se) || !errors.Is(err, wang.ErrSchema) {
				t.Fatalf("expected *SchemaError, got %T %v", err, err)
			}
		})
	}
}

func TestCatalog_DigestStable(t *testing.T) {
	a := wangtest.SampleCatalog(t)
	reversed := make([]wang.TileSpec, len(wangtest.SampleTiles))
	for i, ts := range wangtest.SampleTiles {
		reversed[len(reversed)-1-i] = ts
	}
	b := wangtest.Catalog(t, reversed)
	if a.Digest() != b.Digest() {
		t.Fatalf("digest depends on declaration order: %s vs %s", a.Digest(), b.Digest())
	}
	c := wangtest.Catalog(t, wangtest.Tiles(10, 20))
	if a.Digest() == c.Digest() {
		t.Fatalf("different catalogs share a digest")
	}
}

func cornerSpec(p *wang.Palette, tiles ...wang.TileSpec) wang.CatalogSpec {
	return wang.CatalogSpec{Name: "test_terrain", Type: wang.SetCorner, TileCount: 64, Palette: p, Tiles: tiles}
}
