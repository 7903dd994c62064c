package tileset

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tilecraft.ai/internal/wang"
)

var samplePaths = []string{
	filepath.Join("..", "..", "configs", "tilesets", "test_set.tsx"),
	filepath.Join("..", "..", "configs", "tilesets", "test_set.json"),
	filepath.Join("..", "..", "configs", "tilesets", "test_set.yaml"),
}

func TestLoadCatalogFile_SampleFormatsAgree(t *testing.T) {
	var digest string
	for _, p := range samplePaths {
		cat, d, err := LoadCatalogFile(p, "")
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if d.Name != "test_set" || d.TileWidth != 16 || d.Columns != 8 || d.TileCount != 64 {
			t.Fatalf("%s: unexpected tileset fields %+v", p, d)
		}
		if d.ImageWidth != 128 || d.ImageHeight != 128 {
			t.Fatalf("%s: unexpected image size %dx%d", p, d.ImageWidth, d.ImageHeight)
		}
		if d.Digest == "" {
			t.Fatalf("%s: missing source digest", p)
		}
		if cat.Name() != "test_terrain" || cat.Len() != 16 || cat.Palette().Len() != 2 {
			t.Fatalf("%s: unexpected catalog name=%s len=%d colors=%d", p, cat.Name(), cat.Len(), cat.Palette().Len())
		}
		if digest == "" {
			digest = cat.Digest()
		} else if digest != cat.Digest() {
			t.Fatalf("%s: catalog differs from the .tsx one", p)
		}

		dark, _ := cat.Palette().ByName("dark")
		light, _ := cat.Palette().ByName("light")
		if dark.ID != 1 || light.ID != 2 {
			t.Fatalf("%s: ids dark=%d light=%d", p, dark.ID, light.ID)
		}
		if dark.Representative != nil || light.Representative != nil {
			t.Fatalf("%s: -1 representative should load as none", p)
		}
		for _, want := range []struct {
			id      wang.TileID
			corners wang.Corners
		}{
			{10, wang.Corners{2, 2, 2, 2}},
			{20, wang.Corners{1, 1, 1, 1}},
			{2, wang.Corners{1, 2, 2, 1}},
		} {
			tile, ok := cat.Tile(want.id)
			if !ok || tile.Corners() != want.corners || tile.Probability != 1 {
				t.Fatalf("%s: tile %d = %+v ok=%v", p, want.id, tile, ok)
			}
		}
	}
}

const tsxTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<tileset name="t" tilewidth="16" tileheight="16" tilecount="64" columns="8">
 <image source="t.png" width="128" height="128"/>
 <wangsets>
  <wangset name="ground" type="%TYPE%" tile="-1">
   <wangcolor name="dark" color="#ff0000" tile="20" probability="%PROB%"/>
   <wangcolor name="light" color="#00ff00" tile="-1"/>
   <wangtile tileid="20" wangid="%WANGID%"/>
   <wangtile tileid="10" wangid="0,2,0,2,0,2,0,2"/>
  </wangset>
 </wangsets>
</tileset>`

func tsx(typ, prob, wangid string) []byte {
	r := strings.NewReplacer("%TYPE%", typ, "%PROB%", prob, "%WANGID%", wangid)
	return []byte(r.Replace(tsxTemplate))
}

func TestLoadCatalog_RepresentativeProbability(t *testing.T) {
	d, err := ParseTSX(tsx("corner", "2.5", "0,1,0,1,0,1,0,1"))
	if err != nil {
		t.Fatalf("ParseTSX: %v", err)
	}
	cat, err := LoadCatalog(d, "ground")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	t20, _ := cat.Tile(20)
	t10, _ := cat.Tile(10)
	if t20.Probability != 2.5 {
		t.Fatalf("tile 20 should inherit dark's probability, got %v", t20.Probability)
	}
	if t10.Probability != 1 {
		t.Fatalf("tile 10 has no representative color and should weigh 1, got %v", t10.Probability)
	}
	light, _ := cat.Palette().ByName("light")
	if light.Probability != 1 {
		t.Fatalf("missing probability should default to 1, got %v", light.Probability)
	}
}

func TestLoadCatalog_SchemaErrors(t *testing.T) {
	cases := map[string][]byte{
		"length 7":         tsx("corner", "1", "0,1,0,1,0,1,0"),
		"unknown color":    tsx("corner", "1", "0,1,0,1,0,3,0,1"),
		"edge set":         tsx("edge", "1", "0,1,0,1,0,1,0,1"),
		"mixed set":        tsx("mixed", "1", "0,1,0,1,0,1,0,1"),
		"zero probability": tsx("corner", "0", "0,1,0,1,0,1,0,1"),
		"negative prob":    tsx("corner", "-1", "0,1,0,1,0,1,0,1"),
	}
	for name, raw := range cases {
		d, err := ParseTSX(raw)
		if err != nil {
			t.Fatalf("%s: ParseTSX: %v", name, err)
		}
		cat, err := LoadCatalog(d, "")
		if cat != nil || !errors.Is(err, wang.ErrSchema) {
			t.Fatalf("%s: expected schema error, got cat=%v err=%v", name, cat != nil, err)
		}
	}

	d, _ := ParseTSX(tsx("corner", "1", "0,1,0,1,0,1,0,1"))
	if _, err := LoadCatalog(d, "water"); !errors.Is(err, wang.ErrSchema) {
		t.Fatalf("unknown wang set should be a schema error, got %v", err)
	}
	if _, err := ParseTSX(tsx("corner", "high", "0,1,0,1,0,1,0,1")); !errors.Is(err, wang.ErrSchema) {
		t.Fatalf("bad probability attribute should be a schema error, got %v", err)
	}
	if _, err := ParseTSX([]byte("<tileset")); !errors.Is(err, wang.ErrSchema) {
		t.Fatalf("broken xml should be a schema error, got %v", err)
	}
}

func TestParseJSON_SchemaValidation(t *testing.T) {
	cases := map[string]string{
		"missing wangsets": `{"name":"t","tilewidth":16,"tileheight":16,"columns":8,"tilecount":64}`,
		"bad set type":     `{"name":"t","tilewidth":16,"tileheight":16,"columns":8,"tilecount":64,"wangsets":[{"name":"g","type":"hex","colors":[],"wangtiles":[]}]}`,
		"string wangid":    `{"name":"t","tilewidth":16,"tileheight":16,"columns":8,"tilecount":64,"wangsets":[{"name":"g","type":"corner","colors":[],"wangtiles":[{"tileid":1,"wangid":"0,1,0,1,0,1,0,1"}]}]}`,
		"zero tile width":  `{"name":"t","tilewidth":0,"tileheight":16,"columns":8,"tilecount":64,"wangsets":[]}`,
		"not json":         `{`,
	}
	for name, doc := range cases {
		if _, err := ParseJSON([]byte(doc)); !errors.Is(err, wang.ErrSchema) {
			t.Fatalf("%s: expected schema error, got %v", name, err)
		}
	}

	ok := `{"name":"t","tilewidth":16,"tileheight":16,"columns":8,"tilecount":64,
	  "wangsets":[{"name":"g","type":"corner","tile":-1,
	    "colors":[{"name":"a","tile":3,"probability":2},{"name":"b","tile":-1}],
	    "wangtiles":[{"tileid":3,"wangid":[0,1,0,1,0,1,0,1]},{"tileid":4,"wangid":[0,2,0,1,0,1,0,1]}]}]}`
	d, err := ParseJSON([]byte(ok))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if d.WangSets[0].Tile != nil || d.WangSets[0].Colors[1].Tile != nil {
		t.Fatalf("-1 tiles should normalize to nil")
	}
	cat, err := LoadCatalog(d, "g")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	got := cat.Tiles()
	if got[0].ID != 3 || got[0].Probability != 2 {
		t.Fatalf("representative tile should sort first with weight 2, got %+v", got)
	}
}

func TestDescription_SetSelection(t *testing.T) {
	d := &Description{Name: "t", TileWidth: 16, TileHeight: 16, Columns: 8, WangSets: []WangSet{{Name: "a"}, {Name: "b"}}}
	if _, err := d.Set(""); !errors.Is(err, wang.ErrSchema) {
		t.Fatalf("ambiguous set selection should fail, got %v", err)
	}
	ws, err := d.Set("b")
	if err != nil || ws.Name != "b" {
		t.Fatalf("Set(b) = %v, %v", ws, err)
	}
}

func TestDescription_TileRect(t *testing.T) {
	d := &Description{Name: "t", TileWidth: 16, TileHeight: 16, Columns: 8, TileCount: 64, ImageWidth: 128, ImageHeight: 128}
	r, err := d.TileRect(10)
	if err != nil {
		t.Fatalf("TileRect: %v", err)
	}
	if want := image.Rect(32, 16, 48, 32); r != want {
		t.Fatalf("tile 10: want %v got %v", want, r)
	}
	if _, err := d.TileRect(64); err == nil {
		t.Fatalf("tile beyond tilecount should fail")
	}

	d.Margin, d.Spacing = 1, 2
	d.ImageWidth, d.ImageHeight = 0, 0
	r, _ = d.TileRect(9)
	if want := image.Rect(19, 19, 35, 35); r != want {
		t.Fatalf("tile 9 with margin/spacing: want %v got %v", want, r)
	}
}

func TestLoadFile_UnknownExtension(t *testing.T) {
	p := filepath.Join(t.TempDir(), "set.txt")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(p); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
