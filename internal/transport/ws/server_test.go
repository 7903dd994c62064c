package ws

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tilecraft.ai/internal/engine"
	"tilecraft.ai/internal/protocol"
	"tilecraft.ai/internal/tileset"
	"tilecraft.ai/internal/tuning"
	"tilecraft.ai/internal/wang/wangtest"
)

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	tune := tuning.Defaults()
	tune.DataDir = ""
	eng, err := engine.New(engine.Config{
		Catalog:     wangtest.SampleCatalog(t),
		Description: &tileset.Description{Name: "test_set"},
		Tuning:      tune,
		Logger:      log.New(&strings.Builder{}, "", 0),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	logger := log.New(&strings.Builder{}, "[ws] ", 0)
	srv := httptest.NewServer(NewServer(eng, logger, Options{ReadTimeout: 5 * time.Second}).Handler())
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

func TestServer_CatalogThenResolve(t *testing.T) {
	conn := dial(t)

	var cat protocol.CatalogMsg
	readJSON(t, conn, &cat)
	if cat.Type != protocol.TypeCatalog || len(cat.Tiles) != 16 {
		t.Fatalf("expected CATALOG first, got %+v", cat)
	}

	seed := int64(12)
	req := protocol.ResolveMsg{
		Type: protocol.TypeResolve, ProtocolVersion: protocol.Version, RequestID: "a", Seed: &seed,
		Corners: [][]string{{"light", "light"}, {"light", "light"}},
	}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}
	var res protocol.ResolvedMsg
	readJSON(t, conn, &res)
	if res.Type != protocol.TypeResolved || res.RequestID != "a" || res.Tiles[0][0] != 10 || res.Seed != 12 {
		t.Fatalf("unexpected reply: %+v", res)
	}
}

func TestServer_ErrorsKeepConnectionOpen(t *testing.T) {
	conn := dial(t)
	var cat protocol.CatalogMsg
	readJSON(t, conn, &cat)

	for _, raw := range []string{
		`not json`,
		`{"type":"HELLO"}`,
		`{"type":"RESOLVE","protocol_version":"0.1","corners":[]}`,
		`{"type":"RESOLVE","request_id":"b","corners":[["dark","mud"],["dark","dark"]]}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
		var em protocol.ErrorMsg
		readJSON(t, conn, &em)
		if em.Type != protocol.TypeError || !protocol.IsKnownCode(em.Code) || em.Code == "" {
			t.Fatalf("%s: unexpected reply %+v", raw, em)
		}
	}

	if err := conn.WriteJSON(protocol.MatchMsg{Type: protocol.TypeMatch, RequestID: "m", TopLeft: "dark", TopRight: "dark", BottomLeft: "dark", BottomRight: "dark"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var mr protocol.MatchResultMsg
	readJSON(t, conn, &mr)
	if mr.Type != protocol.TypeMatchResult || mr.RequestID != "m" || len(mr.Candidates) != 1 || mr.Candidates[0].ID != 20 {
		t.Fatalf("unexpected match reply: %+v", mr)
	}
}
