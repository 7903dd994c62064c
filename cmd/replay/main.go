package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/resolve"
	"tilecraft.ai/internal/tileset"
)

func main() {
	var (
		snapPath    = flag.String("snapshot", "", "path to .map.zst (optional)")
		tilesetPath = flag.String("tileset", "./configs/tilesets/test_set.tsx", "tileset the snapshot was resolved with")
		wangSet     = flag.String("wang_set", "", "wang set name (default: the snapshot's)")
		tilesPath   = flag.String("tiles", "", "tile CSV to check against the snapshot (optional)")
		workers     = flag.Int("workers", 0, "resolver workers (0 = GOMAXPROCS)")
		auditDir    = flag.String("data", "", "data dir whose audit log to summarize (optional)")
	)
	flag.Parse()

	if *snapPath == "" && *auditDir == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot or -data")
		os.Exit(2)
	}

	if *snapPath != "" {
		opts := verifyOptions{tileset: *tilesetPath, wangSet: *wangSet, tiles: *tilesPath, workers: *workers}
		if err := verifySnapshot(os.Stdout, *snapPath, opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *auditDir != "" {
		if err := summarizeAudit(*auditDir); err != nil {
			fmt.Fprintln(os.Stderr, "audit:", err)
			os.Exit(1)
		}
	}
}

type verifyOptions struct {
	tileset string
	wangSet string
	tiles   string
	workers int
}

func verifySnapshot(w io.Writer, path string, opts verifyOptions) error {
	// The header alone is enough to reject a snapshot from another catalog.
	h, err := snapshot.ReadHeader(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	fmt.Fprintf(w, "snapshot v%d tileset=%s wang_set=%s seed=%d size=%dx%d grid=%s\n",
		h.Version, h.Tileset, h.WangSet, h.Seed, h.Rows, h.Cols, h.GridDigest)

	wangSet := opts.wangSet
	if wangSet == "" {
		wangSet = h.WangSet
	}
	cat, _, err := tileset.LoadCatalogFile(opts.tileset, wangSet)
	if err != nil {
		return fmt.Errorf("load tileset: %w", err)
	}
	if cat.Digest() != h.CatalogDigest {
		return fmt.Errorf("catalog digest mismatch: snapshot=%s tileset=%s", h.CatalogDigest, cat.Digest())
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header != h {
		return fmt.Errorf("snapshot header line disagrees with its body")
	}
	if got := snap.Resolved.Digest(); got != h.GridDigest {
		return fmt.Errorf("stored grid is corrupt: header=%s body=%s", h.GridDigest, got)
	}

	out, err := resolve.Resolve(cat, &snap.Corners, h.Seed, resolve.WithWorkers(opts.workers))
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if got := out.Digest(); got != h.GridDigest {
		if i := firstDiff(&snap.Resolved, out); i >= 0 {
			return fmt.Errorf("replay diverged at cell (%d,%d): want %d got %d",
				i/out.Cols, i%out.Cols, snap.Resolved.Tiles[i], out.Tiles[i])
		}
		return fmt.Errorf("replay digest mismatch: want %s got %s", h.GridDigest, got)
	}
	fmt.Fprintln(w, "replay ok")

	if opts.tiles != "" {
		if err := checkTiles(opts.tiles, &snap.Resolved); err != nil {
			return err
		}
		fmt.Fprintf(w, "tiles ok %s\n", opts.tiles)
	}
	return nil
}

// checkTiles compares an exported tile CSV with the snapshot's grid.
func checkTiles(path string, want *resolve.ResolvedGrid) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("tiles: %w", err)
	}
	defer f.Close()
	got, err := resolve.ReadResolvedCSV(f)
	if err != nil {
		return fmt.Errorf("tiles: %w", err)
	}
	if got.Rows != want.Rows || got.Cols != want.Cols {
		return fmt.Errorf("tiles: size %dx%d, snapshot has %dx%d", got.Rows, got.Cols, want.Rows, want.Cols)
	}
	if i := firstDiff(want, got); i >= 0 {
		return fmt.Errorf("tiles: cell (%d,%d) is %d, snapshot has %d", i/got.Cols, i%got.Cols, got.Tiles[i], want.Tiles[i])
	}
	return nil
}

// firstDiff returns the first row-major index where a and b differ, or -1.
func firstDiff(a, b *resolve.ResolvedGrid) int {
	n := len(a.Tiles)
	if len(b.Tiles) < n {
		n = len(b.Tiles)
	}
	for i := 0; i < n; i++ {
		if a.Tiles[i] != b.Tiles[i] {
			return i
		}
	}
	return -1
}

func summarizeAudit(dataDir string) error {
	entries, err := persistlog.ReadResolves(dataDir)
	if err != nil {
		return err
	}
	byCode := map[string]int{}
	var totalMS int64
	for _, e := range entries {
		code := e.Code
		if code == "" {
			code = "OK"
		}
		byCode[code]++
		totalMS += e.DurationMS
	}
	codes := make([]string, 0, len(byCode))
	for c := range byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	fmt.Printf("audit entries=%d total_ms=%d\n", len(entries), totalMS)
	for _, c := range codes {
		fmt.Printf("  %-16s %d\n", c, byCode[c])
	}
	return nil
}
