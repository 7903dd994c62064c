package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"tilecraft.ai/internal/wang"
)

// RLE is the wire name of the run-length tile encoding.
const RLE = "RLE"

// EncodeRLE encodes row-major tile ids into base64(varint pairs).
// The pairs are (tile_id, run_len) repeated.
func EncodeRLE(ids []wang.TileID) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		t := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == t && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(uint32(t)))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. want bounds the decoded length so a hostile
// run count cannot allocate without limit.
func DecodeRLE(b64 string, want int) ([]wang.TileID, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]wang.TileID, 0, want)
	for i := 0; i < len(raw); {
		t, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if t > math.MaxInt32 {
			return nil, fmt.Errorf("tile id too large: %d", t)
		}
		if run == 0 || run > uint64(want-len(out)) {
			return nil, fmt.Errorf("run of %d overflows %d tiles", run, want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, wang.TileID(t))
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("decoded %d tiles, want %d", len(out), want)
	}
	return out, nil
}
