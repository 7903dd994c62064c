package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tilecraft.ai/internal/engine"
	"tilecraft.ai/internal/persistence/indexdb"
	"tilecraft.ai/internal/protocol"
	"tilecraft.ai/internal/tileset"
)

// Engine is what the HTTP API needs from *engine.Engine.
type Engine interface {
	CatalogMsg() protocol.CatalogMsg
	ResolveMsg(source string, m protocol.ResolveMsg) (protocol.ResolvedMsg, error)
	MatchMsg(m protocol.MatchMsg) (protocol.MatchResultMsg, error)
	ErrorMsg(requestID string, err error) protocol.ErrorMsg
	Recent(ctx context.Context, limit int) ([]indexdb.Resolution, error)
}

type Config struct {
	Engine       Engine
	Logger       *log.Logger
	MaxBodyBytes int64
	// WS is mounted at /v1/ws when set.
	WS http.Handler
}

type api struct {
	eng     Engine
	log     *log.Logger
	maxBody int64
}

// SetupRoutes returns the router for the /v1 API.
func SetupRoutes(cfg Config) http.Handler {
	a := &api{eng: cfg.Engine, log: cfg.Logger, maxBody: cfg.MaxBodyBytes}
	if a.maxBody <= 0 {
		a.maxBody = 16 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: cfg.Logger, NoColor: true}))
	}
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.respondError(w, "", &engine.RequestError{Code: protocol.ErrNotFound, Msg: "no route for " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.respondError(w, "", engine.BadRequest("method %s not allowed on %s", r.Method, r.URL.Path))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", a.health)
		r.Get("/catalog", a.catalog)
		r.Get("/resolutions", a.resolutions)
		r.Get("/schemas/tileset", tilesetSchema)
		r.Post("/match", a.match)
		r.Post("/resolve", a.resolve)
		if cfg.WS != nil {
			r.Handle("/ws", cfg.WS)
		}
	})
	return r
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	cat := a.eng.CatalogMsg()
	respondJSON(w, http.StatusOK, map[string]string{
		"status":           "ok",
		"protocol_version": protocol.Version,
		"catalog_digest":   cat.Digest,
	})
}

func (a *api) catalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.eng.CatalogMsg())
}

func tilesetSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(tileset.SchemaJSON()))
}

func (a *api) resolutions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			a.respondError(w, "", engine.BadRequest("limit must be in 1..1000"))
			return
		}
		limit = n
	}
	rows, err := a.eng.Recent(r.Context(), limit)
	if err != nil {
		a.respondError(w, "", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"resolutions": toResolutionRefs(rows)})
}

func (a *api) match(w http.ResponseWriter, r *http.Request) {
	var m protocol.MatchMsg
	if err := a.decode(w, r, protocol.TypeMatch, &m, &m.Type); err != nil {
		a.respondError(w, m.RequestID, err)
		return
	}
	res, err := a.eng.MatchMsg(m)
	if err != nil {
		a.respondError(w, m.RequestID, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (a *api) resolve(w http.ResponseWriter, r *http.Request) {
	var m protocol.ResolveMsg
	if err := a.decode(w, r, protocol.TypeResolve, &m, &m.Type); err != nil {
		a.respondError(w, m.RequestID, err)
		return
	}
	res, err := a.eng.ResolveMsg("http", m)
	if err != nil {
		a.respondError(w, m.RequestID, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// decode reads one JSON message. The type field may be omitted over HTTP.
func (a *api) decode(w http.ResponseWriter, r *http.Request, typ string, v any, gotType *string) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return engine.BadRequest("body exceeds %d bytes", tooBig.Limit)
		}
		return engine.BadRequest("bad json: %v", err)
	}
	if *gotType != "" && *gotType != typ {
		return engine.BadRequest("expected %s, got %q", typ, *gotType)
	}
	*gotType = typ
	return nil
}

type resolutionRef struct {
	ID            int64  `json:"id"`
	CatalogDigest string `json:"catalog_digest"`
	Seed          int64  `json:"seed"`
	Rows          int    `json:"rows"`
	Cols          int    `json:"cols"`
	GridDigest    string `json:"grid_digest,omitempty"`
	Status        string `json:"status"`
	ErrRow        *int   `json:"err_row,omitempty"`
	ErrCol        *int   `json:"err_col,omitempty"`
	Pattern       string `json:"pattern,omitempty"`
	Snapshot      string `json:"snapshot,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
	RecordedAt    string `json:"recorded_at"`
}

func toResolutionRefs(rows []indexdb.Resolution) []resolutionRef {
	out := make([]resolutionRef, 0, len(rows))
	for _, r := range rows {
		ref := resolutionRef{
			ID: r.ID, CatalogDigest: r.CatalogDigest, Seed: r.Seed, Rows: r.Rows, Cols: r.Cols,
			GridDigest: r.GridDigest, Status: r.Status, Pattern: r.Pattern, Snapshot: r.SnapshotPath,
			DurationMS: r.DurationMS, RecordedAt: r.RecordedAt,
		}
		if r.Status == indexdb.StatusUnsatisfiable {
			row, col := r.ErrRow, r.ErrCol
			ref.ErrRow, ref.ErrCol = &row, &col
		}
		out = append(out, ref)
	}
	return out
}

func statusFor(code string) int {
	switch code {
	case protocol.ErrBadRequest:
		return http.StatusBadRequest
	case protocol.ErrSchema, protocol.ErrUnsatisfiable:
		return http.StatusUnprocessableEntity
	case protocol.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
	}
}

// respondError writes an ERROR message with the status matching its code.
func (a *api) respondError(w http.ResponseWriter, requestID string, err error) {
	msg := a.eng.ErrorMsg(requestID, err)
	if msg.Code == protocol.ErrInternal && a.log != nil {
		a.log.Printf("internal error: %v", err)
		msg.Message = fmt.Sprintf("internal error (%s)", http.StatusText(http.StatusInternalServerError))
	}
	respondJSON(w, statusFor(msg.Code), msg)
}
