package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"tilecraft.ai/internal/persistence/indexdb"
	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/protocol"
	"tilecraft.ai/internal/resolve"
	"tilecraft.ai/internal/tileset"
	"tilecraft.ai/internal/tuning"
	"tilecraft.ai/internal/wang"
)

// Engine serves resolves against one immutable catalog. It is safe for
// concurrent use; the catalog is read-only after load.
type Engine struct {
	cat  *wang.Catalog
	desc *tileset.Description
	tune tuning.Tuning

	logger *log.Logger
	audit  *persistlog.AuditLogger
	index  *indexdb.SQLiteIndex
}

type Config struct {
	Catalog     *wang.Catalog
	Description *tileset.Description
	Tuning      tuning.Tuning

	// Optional.
	Logger *log.Logger
	Audit  *persistlog.AuditLogger
	Index  *indexdb.SQLiteIndex
}

func New(cfg Config) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("engine: nil catalog")
	}
	if cfg.Description == nil {
		return nil, fmt.Errorf("engine: nil tileset description")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Engine{
		cat:    cfg.Catalog,
		desc:   cfg.Description,
		tune:   cfg.Tuning,
		logger: logger,
		audit:  cfg.Audit,
		index:  cfg.Index,
	}, nil
}

// Open loads the tileset named by the tuning and, unless disableDB is set,
// opens the audit log and sqlite index under the data dir.
func Open(tune tuning.Tuning, logger *log.Logger, disableDB bool) (*Engine, error) {
	cat, desc, err := tileset.LoadCatalogFile(tune.Tileset, tune.WangSet)
	if err != nil {
		return nil, fmt.Errorf("load tileset: %w", err)
	}
	cfg := Config{Catalog: cat, Description: desc, Tuning: tune, Logger: logger}
	if !disableDB && tune.DataDir != "" {
		cfg.Audit = persistlog.NewAuditLogger(tune.DataDir)
		idx, err := indexdb.OpenSQLite(filepath.Join(tune.DataDir, "index.db"))
		if err != nil {
			_ = cfg.Audit.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		cfg.Index = idx
	}
	e, err := New(cfg)
	if err != nil {
		_ = closeStores(cfg.Audit, cfg.Index)
		return nil, err
	}
	e.logger.Printf("catalog loaded tileset=%s wang_set=%s tiles=%d colors=%d digest=%s",
		desc.Name, cat.Name(), cat.Len(), cat.Palette().Len(), cat.Digest())
	if e.index != nil {
		e.indexCatalog()
	}
	return e, nil
}

// indexCatalog stores the loaded catalog, noting when it replaces a different
// one of the same name. Runs indexed before the change no longer replay.
func (e *Engine) indexCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	prev, ok, err := e.index.CatalogDigest(ctx, e.cat.Name())
	switch {
	case err != nil:
		e.logger.Printf("index: read catalog digest: %v", err)
	case ok && prev != e.cat.Digest():
		e.logger.Printf("index: catalog %s changed since last run: %s -> %s", e.cat.Name(), prev, e.cat.Digest())
	}
	if err := e.index.UpsertCatalog(e.cat, e.tune); err != nil {
		e.logger.Printf("index: upsert catalog: %v", err)
	}
}

func closeStores(audit *persistlog.AuditLogger, index *indexdb.SQLiteIndex) error {
	var errs []error
	if audit != nil {
		errs = append(errs, audit.Close())
	}
	if index != nil {
		errs = append(errs, index.Close())
	}
	return errors.Join(errs...)
}

func (e *Engine) Close() error { return closeStores(e.audit, e.index) }

func (e *Engine) Catalog() *wang.Catalog               { return e.cat }
func (e *Engine) Description() *tileset.Description { return e.desc }
func (e *Engine) Tuning() tuning.Tuning               { return e.tune }
func (e *Engine) Index() *indexdb.SQLiteIndex         { return e.index }

// Request is one resolve call. A nil Seed uses the tuning's default.
type Request struct {
	Source   string
	Grid     *resolve.CornerGrid
	Seed     *int64
	Snapshot bool
}

type Result struct {
	Grid         *resolve.ResolvedGrid
	Seed         int64
	SnapshotPath string
	Duration     time.Duration
}

// Resolve checks the request against the configured limits, resolves it, and
// records the run in the audit log and index. Recording failures are logged,
// never returned.
func (e *Engine) Resolve(req Request) (Result, error) {
	seed := e.tune.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	res := Result{Seed: seed}

	start := time.Now()
	err := e.checkLimits(req.Grid)
	if err == nil {
		res.Grid, err = resolve.Resolve(e.cat, req.Grid, seed, resolve.WithWorkers(e.tune.Workers))
	}
	if err == nil && req.Snapshot {
		res.SnapshotPath, err = e.writeSnapshot(req.Grid, res.Grid, seed)
	}
	res.Duration = time.Since(start)

	e.record(req, res, err)
	if err != nil {
		return Result{Seed: seed, Duration: res.Duration}, err
	}
	return res, nil
}

func (e *Engine) checkLimits(g *resolve.CornerGrid) error {
	if g == nil {
		return &wang.SchemaError{Reason: "corner grid: nil"}
	}
	if g.Rows > e.tune.MaxGridRows || g.Cols > e.tune.MaxGridCols {
		return &RequestError{Code: protocol.ErrBadRequest, Msg: fmt.Sprintf("grid %dx%d exceeds limit %dx%d",
			g.Rows, g.Cols, e.tune.MaxGridRows, e.tune.MaxGridCols)}
	}
	return nil
}

func (e *Engine) writeSnapshot(in *resolve.CornerGrid, out *resolve.ResolvedGrid, seed int64) (string, error) {
	if e.tune.DataDir == "" {
		return "", &RequestError{Code: protocol.ErrBadRequest, Msg: "snapshots need a data dir"}
	}
	snap := snapshot.New(e.desc.Name, e.cat.Name(), e.cat.Digest(), seed, in, out)
	path := filepath.Join(e.tune.DataDir, "maps", snapshot.FileName(snap.Header))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

func (e *Engine) record(req Request, res Result, err error) {
	rows, cols := 0, 0
	if req.Grid != nil {
		rows, cols = req.Grid.Rows, req.Grid.Cols
	}
	entry := persistlog.ResolveEntry{
		Time:          time.Now().UTC(),
		Source:        req.Source,
		CatalogDigest: e.cat.Digest(),
		Seed:          res.Seed,
		Rows:          rows,
		Cols:          cols,
		Snapshot:      res.SnapshotPath,
		DurationMS:    res.Duration.Milliseconds(),
	}
	row := indexdb.Resolution{
		CatalogDigest: e.cat.Digest(),
		Seed:          res.Seed,
		Rows:          rows,
		Cols:          cols,
		Status:        indexdb.StatusOK,
		SnapshotPath:  res.SnapshotPath,
		DurationMS:    res.Duration.Milliseconds(),
	}

	var cellErr *resolve.UnsatisfiableCellError
	switch {
	case err == nil:
		entry.GridDigest = res.Grid.Digest()
		row.GridDigest = entry.GridDigest
	case errors.As(err, &cellErr):
		entry.Code, entry.Error = protocol.ErrUnsatisfiable, err.Error()
		entry.ErrRow, entry.ErrCol = &cellErr.Row, &cellErr.Col
		row.Status = indexdb.StatusUnsatisfiable
		row.ErrRow, row.ErrCol = cellErr.Row, cellErr.Col
		row.Pattern = cellErr.Pattern.Describe(e.cat.Palette())
	default:
		entry.Code, entry.Error = Code(err), err.Error()
		row.Status = indexdb.StatusRejected
	}

	if err != nil {
		e.logger.Printf("resolve source=%s seed=%d size=%dx%d: %v", req.Source, res.Seed, rows, cols, err)
	} else {
		e.logger.Printf("resolve source=%s seed=%d size=%dx%d digest=%.12s took=%s", req.Source, res.Seed, rows, cols, entry.GridDigest, res.Duration)
	}
	if e.audit != nil {
		if werr := e.audit.WriteResolve(entry); werr != nil {
			e.logger.Printf("audit: %v", werr)
		}
	}
	e.index.RecordResolution(row)
}

// Recent returns the latest indexed runs, newest first. Without an index it
// returns nothing.
func (e *Engine) Recent(ctx context.Context, limit int) ([]indexdb.Resolution, error) {
	if e.index == nil {
		return nil, nil
	}
	if err := e.index.Flush(ctx); err != nil {
		return nil, err
	}
	return e.index.Resolutions(ctx, limit)
}

// Match lists the catalog tiles fitting one cell, in selection order.
func (e *Engine) Match(required wang.Corners) []wang.TileDefinition {
	return wang.Match(e.cat, required)
}
