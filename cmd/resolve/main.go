package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"tilecraft.ai/internal/engine"
	"tilecraft.ai/internal/resolve"
	"tilecraft.ai/internal/tuning"
)

func main() {
	var (
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		tilesetPath = flag.String("tileset", "", "tileset file (.tsx, .json, .yaml); overrides tuning")
		wangSet     = flag.String("wang_set", "", "wang set name; overrides tuning")
		inPath      = flag.String("in", "", "corner grid CSV, one vertex row per line")
		outPath     = flag.String("out", "", "tile CSV output (default stdout)")
		seed        = flag.Int64("seed", 0, "seed (default: tuning seed)")
		workers     = flag.Int("workers", -1, "resolver workers (0 = GOMAXPROCS, default: tuning)")
		dataDir     = flag.String("data", "", "runtime data directory; overrides tuning")
		snap        = flag.Bool("snapshot", false, "write a map snapshot under <data>/maps")
		disableDB   = flag.Bool("disable_db", false, "disable the audit log and index")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[resolve] ", log.LstdFlags|log.Lmicroseconds)

	if strings.TrimSpace(*inPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -in")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	if *tilesetPath != "" {
		tune.Tileset = *tilesetPath
	}
	if *wangSet != "" {
		tune.WangSet = *wangSet
	}
	if *workers >= 0 {
		tune.Workers = *workers
	}
	if *dataDir != "" {
		tune.DataDir = *dataDir
	}

	eng, err := engine.Open(tune, logger, *disableDB)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer eng.Close()

	f, err := os.Open(*inPath)
	if err != nil {
		logger.Fatalf("open corner grid: %v", err)
	}
	grid, err := resolve.ReadCornerCSV(f, eng.Catalog().Palette())
	_ = f.Close()
	if err != nil {
		logger.Fatalf("%s: %v", *inPath, err)
	}

	req := engine.Request{Source: "cli", Grid: grid, Snapshot: *snap}
	flag.Visit(func(fl *flag.Flag) {
		if fl.Name == "seed" {
			req.Seed = seed
		}
	})

	res, err := eng.Resolve(req)
	if err != nil {
		var cellErr *resolve.UnsatisfiableCellError
		if errors.As(err, &cellErr) {
			logger.Printf("cell (%d,%d) needs corners %s", cellErr.Row, cellErr.Col, cellErr.Pattern.Describe(eng.Catalog().Palette()))
		}
		_ = eng.Close()
		logger.Fatalf("resolve: %v", err)
	}

	w := os.Stdout
	if *outPath != "" {
		out, err := os.Create(*outPath)
		if err != nil {
			logger.Fatalf("create output: %v", err)
		}
		defer out.Close()
		w = out
	}
	if err := res.Grid.WriteCSV(w); err != nil {
		logger.Fatalf("write output: %v", err)
	}
	logger.Printf("resolved %dx%d seed=%d digest=%s", res.Grid.Rows, res.Grid.Cols, res.Seed, res.Grid.Digest())
	if res.SnapshotPath != "" {
		logger.Printf("snapshot=%s", res.SnapshotPath)
	}
}
