package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tilecraft.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// asDoc turns a Go message into the generic form the validator expects.
func asDoc(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return doc
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, raw string) {
		t.Helper()
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			t.Fatalf("sample: %v", err)
		}
		if err := s.Validate(doc); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile(t, "resolve.schema.json"), `{
	  "type":"RESOLVE",
	  "protocol_version":"1.0",
	  "request_id":"r1",
	  "seed":1337,
	  "corners":[["dark","dark","*"],["light","light",""]]
	}`)
	validate(compile(t, "match.schema.json"), `{
	  "type":"MATCH",
	  "top_left":"dark","top_right":"dark","bottom_left":"light","bottom_right":"*"
	}`)
	validate(compile(t, "error.schema.json"), `{
	  "type":"ERROR",
	  "protocol_version":"1.0",
	  "code":"E_UNSATISFIABLE",
	  "message":"no tile",
	  "row":1,"col":1,
	  "pattern":["light","light","light","dark"]
	}`)
}

func TestSchemas_RejectBadMessages(t *testing.T) {
	resolve := compile(t, "resolve.schema.json")
	bad := []string{
		`{"type":"RESOLVE"}`,
		`{"type":"RESOLVE","corners":[["dark"]]}`,
		`{"type":"RESOLVE","corners":[[1,2],[3,4]]}`,
		`{"type":"RESOLVED","corners":[["a","a"],["a","a"]]}`,
	}
	for _, raw := range bad {
		var doc any
		_ = json.Unmarshal([]byte(raw), &doc)
		if err := resolve.Validate(doc); err == nil {
			t.Fatalf("expected %s to be rejected", raw)
		}
	}

	errSchema := compile(t, "error.schema.json")
	var doc any
	_ = json.Unmarshal([]byte(`{"type":"ERROR","protocol_version":"1.0","code":"E_WHATEVER","message":"x"}`), &doc)
	if err := errSchema.Validate(doc); err == nil {
		t.Fatalf("unknown error code should be rejected")
	}
}

func TestSchemas_GoMessagesConform(t *testing.T) {
	seed := int64(9)
	row, col := 2, 3
	pattern := [4]string{"light", "light", "light", "dark"}
	rep := int32(20)

	cases := []struct {
		schema string
		msg    any
	}{
		{"resolve.schema.json", protocol.ResolveMsg{
			Type: protocol.TypeResolve, Seed: &seed,
			Corners: [][]string{{"dark", "light"}, {"*", "dark"}},
		}},
		{"resolved.schema.json", protocol.ResolvedMsg{
			Type: protocol.TypeResolved, ProtocolVersion: protocol.Version,
			CatalogDigest: "abc", Seed: 9, Rows: 1, Cols: 2,
			Tiles: [][]int32{{10, 20}}, GridDigest: "def",
		}},
		{"resolved.schema.json", protocol.ResolvedMsg{
			Type: protocol.TypeResolved, ProtocolVersion: protocol.Version,
			CatalogDigest: "abc", Seed: 9, Rows: 4, Cols: 4,
			Encoding: "RLE", TilesRLE: "CgI=", GridDigest: "def",
		}},
		{"match.schema.json", protocol.MatchMsg{
			Type: protocol.TypeMatch, TopLeft: "dark", TopRight: "dark", BottomLeft: "light", BottomRight: "light",
		}},
		{"match_result.schema.json", protocol.MatchResultMsg{
			Type: protocol.TypeMatchResult, ProtocolVersion: protocol.Version,
			Candidates: []protocol.TileRef{{ID: 2, Probability: 1, Corners: [4]string{"dark", "dark", "light", "light"}, Rect: &[4]int{32, 0, 16, 16}}},
		}},
		{"match_result.schema.json", protocol.MatchResultMsg{
			Type: protocol.TypeMatchResult, ProtocolVersion: protocol.Version,
		}},
		{"catalog.schema.json", protocol.CatalogMsg{
			Type: protocol.TypeCatalog, ProtocolVersion: protocol.Version,
			Tileset: protocol.TilesetRef{Name: "test_set", TileWidth: 16, TileHeight: 16, Columns: 8, TileCount: 64},
			WangSet: "test_terrain", Digest: "abc",
			Colors: []protocol.ColorRef{{ID: 1, Name: "dark", Probability: 1, Representative: &rep}},
			Tiles:  []protocol.TileRef{{ID: 20, Probability: 1, Corners: [4]string{"dark", "dark", "dark", "dark"}}},
		}},
		{"error.schema.json", protocol.ErrorMsg{
			Type: protocol.TypeError, ProtocolVersion: protocol.Version,
			Code: protocol.ErrUnsatisfiable, Message: "no tile", Row: &row, Col: &col, Pattern: &pattern,
		}},
	}
	for _, c := range cases {
		if err := compile(t, c.schema).Validate(asDoc(t, c.msg)); err != nil {
			t.Fatalf("%s: %v", c.schema, err)
		}
	}
}
