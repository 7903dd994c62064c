package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tilecraft.ai/internal/wang"
)

// SQLiteIndex is a queryable secondary index of catalogs and resolve runs.
// The compressed audit log stays the source of truth; writes are queued and
// dropped when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on ch against Close closing it.
	mu     sync.RWMutex
	closed bool

	dropResolution atomic.Uint64
}

type reqKind int

const (
	reqResolution reqKind = iota + 1
	reqFlush
)

type req struct {
	kind       reqKind
	resolution Resolution
	done       chan struct{}
}

// Resolution is one indexed resolve run. ErrRow and ErrCol are -1 unless
// Status is "unsatisfiable".
type Resolution struct {
	ID            int64
	CatalogDigest string
	Seed          int64
	Rows          int
	Cols          int
	GridDigest    string
	Status        string
	ErrRow        int
	ErrCol        int
	Pattern       string
	SnapshotPath  string
	DurationMS    int64
	RecordedAt    string
}

const (
	StatusOK            = "ok"
	StatusUnsatisfiable = "unsatisfiable"
	StatusRejected      = "rejected"
)

type Stats struct {
	QueueDepth          int
	QueueCapacity       int
	DropResolutionTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS resolutions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			catalog_digest TEXT NOT NULL,
			seed INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			cols INTEGER NOT NULL,
			grid_digest TEXT NOT NULL,
			status TEXT NOT NULL,
			err_row INTEGER NOT NULL,
			err_col INTEGER NOT NULL,
			pattern TEXT NOT NULL,
			snapshot_path TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_catalog_seed ON resolutions(catalog_digest, seed);`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_grid ON resolutions(grid_digest);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropResolutionTotal: s.dropResolution.Load(),
	}
}

// RecordResolution queues a run for indexing. It never blocks.
func (s *SQLiteIndex) RecordResolution(r Resolution) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	if r.RecordedAt == "" {
		r.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if r.Status != StatusUnsatisfiable {
		r.ErrRow, r.ErrCol = -1, -1
	}
	select {
	case s.ch <- req{kind: reqResolution, resolution: r}:
	default:
		s.dropResolution.Add(1)
	}
}

// Flush waits until every queued write before it is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	if sent, err := s.sendFlush(ctx, done); !sent {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) sendFlush(ctx context.Context, done chan struct{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, nil
	}
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type catalogTile struct {
	ID          wang.TileID `json:"id"`
	Corners     [4]int      `json:"corners"`
	Probability float64     `json:"probability"`
}

type catalogColor struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	Probability    float64      `json:"probability"`
	Representative *wang.TileID `json:"representative,omitempty"`
}

type catalogRow struct {
	Name   string         `json:"name"`
	Colors []catalogColor `json:"colors"`
	Tiles  []catalogTile  `json:"tiles"`
}

// UpsertCatalog stores the loaded catalog and the settings in effect, keyed
// by name, in one transaction.
func (s *SQLiteIndex) UpsertCatalog(cat *wang.Catalog, settings any) error {
	if s == nil {
		return nil
	}
	if cat == nil {
		return fmt.Errorf("nil catalog")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	row := catalogRow{Name: cat.Name()}
	for _, c := range cat.Palette().Colors() {
		row.Colors = append(row.Colors, catalogColor{
			ID: int(c.ID), Name: c.Name, Probability: c.Probability, Representative: c.Representative,
		})
	}
	for _, t := range cat.Tiles() {
		c := t.Corners()
		row.Tiles = append(row.Tiles, catalogTile{
			ID:          t.ID,
			Corners:     [4]int{int(c[0]), int(c[1]), int(c[2]), int(c[3])},
			Probability: t.Probability,
		})
	}
	catJSON, err := json.Marshal(row)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if _, err := stmt.Exec("catalog:"+cat.Name(), cat.Digest(), string(catJSON), now); err != nil {
		return err
	}
	if settings != nil {
		b, err := json.Marshal(settings)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec("tuning", sha256Hex(b), string(b), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the stored digest for a catalog name.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, bool, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, "catalog:"+name).Scan(&d)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

// Resolutions returns the most recent runs, newest first.
func (s *SQLiteIndex) Resolutions(ctx context.Context, limit int) ([]Resolution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,catalog_digest,seed,rows,cols,grid_digest,status,err_row,err_col,pattern,snapshot_path,duration_ms,recorded_at
		FROM resolutions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var r Resolution
		if err := rows.Scan(&r.ID, &r.CatalogDigest, &r.Seed, &r.Rows, &r.Cols, &r.GridDigest, &r.Status,
			&r.ErrRow, &r.ErrCol, &r.Pattern, &r.SnapshotPath, &r.DurationMS, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertResolution, _ := s.db.Prepare(`INSERT INTO resolutions(catalog_digest,seed,rows,cols,grid_digest,status,err_row,err_col,pattern,snapshot_path,duration_ms,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertResolution != nil {
			_ = insertResolution.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	// The batch holds the only connection, so it is committed as soon as the
	// queue drains; readers never wait on an idle transaction.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		var r req
		select {
		case <-ticker.C:
			commit()
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}

		switch r.kind {
		case reqFlush:
			commit()
			close(r.done)
			continue

		case reqResolution:
			begin()
			if tx == nil || insertResolution == nil {
				continue
			}
			res := r.resolution
			if _, err := tx.Stmt(insertResolution).Exec(
				res.CatalogDigest,
				res.Seed,
				res.Rows,
				res.Cols,
				res.GridDigest,
				res.Status,
				res.ErrRow,
				res.ErrCol,
				res.Pattern,
				res.SnapshotPath,
				res.DurationMS,
				res.RecordedAt,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || len(s.ch) == 0 {
			commit()
		}
	}
}
