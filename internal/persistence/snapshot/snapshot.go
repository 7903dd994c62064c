package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"tilecraft.ai/internal/resolve"
)

const Version = 1

// Header is written as a JSON line ahead of the gob body so tools can inspect
// a snapshot without decoding the grids.
type Header struct {
	Version       int    `json:"version"`
	Tileset       string `json:"tileset"`
	WangSet       string `json:"wang_set"`
	CatalogDigest string `json:"catalog_digest"`
	Seed          int64  `json:"seed"`
	Rows          int    `json:"rows"`
	Cols          int    `json:"cols"`
	GridDigest    string `json:"grid_digest"`
}

// MapV1 is a resolved map together with the input that produced it, enough
// to replay the resolve and compare digests.
type MapV1 struct {
	Header   Header
	Corners  resolve.CornerGrid
	Resolved resolve.ResolvedGrid
}

// New captures a finished resolve.
func New(tileset, wangSet, catalogDigest string, seed int64, in *resolve.CornerGrid, out *resolve.ResolvedGrid) MapV1 {
	return MapV1{
		Header: Header{
			Version:       Version,
			Tileset:       tileset,
			WangSet:       wangSet,
			CatalogDigest: catalogDigest,
			Seed:          seed,
			Rows:          out.Rows,
			Cols:          out.Cols,
			GridDigest:    out.Digest(),
		},
		Corners:  *in,
		Resolved: *out,
	}
}

// FileName is the conventional snapshot name for a grid digest.
func FileName(h Header) string {
	d := h.GridDigest
	if len(d) > 16 {
		d = d[:16]
	}
	return fmt.Sprintf("%d-%s.map.zst", h.Seed, d)
}

func WriteSnapshot(path string, snap MapV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func ReadSnapshot(path string) (MapV1, error) {
	var snap MapV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if err := checkShape(snap); err != nil {
		return snap, fmt.Errorf("snapshot %s: %w", filepath.Base(path), err)
	}
	return snap, nil
}

func checkShape(snap MapV1) error {
	h, in, out := snap.Header, snap.Corners, snap.Resolved
	if h.Rows <= 0 || h.Cols <= 0 {
		return fmt.Errorf("invalid size %dx%d", h.Rows, h.Cols)
	}
	if in.Rows != h.Rows || in.Cols != h.Cols || out.Rows != h.Rows || out.Cols != h.Cols {
		return fmt.Errorf("grid sizes disagree: header %dx%d corners %dx%d tiles %dx%d",
			h.Rows, h.Cols, in.Rows, in.Cols, out.Rows, out.Cols)
	}
	if want := (h.Rows + 1) * (h.Cols + 1); len(in.Vertices) != want {
		return fmt.Errorf("corner grid has %d vertices, want %d", len(in.Vertices), want)
	}
	if want := h.Rows * h.Cols; len(out.Tiles) != want {
		return fmt.Errorf("resolved grid has %d tiles, want %d", len(out.Tiles), want)
	}
	return nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
