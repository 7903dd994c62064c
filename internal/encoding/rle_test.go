package encoding

import (
	"testing"

	"tilecraft.ai/internal/wang"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]wang.TileID, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10, 300000)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_UniformGridIsSmall(t *testing.T) {
	in := make([]wang.TileID, 1024*1024)
	for i := range in {
		in[i] = 10
	}
	if enc := EncodeRLE(in); len(enc) > 8 {
		t.Fatalf("uniform grid should encode to one pair, got %q", enc)
	}
}

func TestDecodeRLE_Rejects(t *testing.T) {
	enc := EncodeRLE([]wang.TileID{4, 4, 4})
	if _, err := DecodeRLE(enc, 2); err == nil {
		t.Fatalf("run longer than the grid should fail")
	}
	if _, err := DecodeRLE(enc, 4); err == nil {
		t.Fatalf("short stream should fail")
	}
	if _, err := DecodeRLE("!!", 1); err == nil {
		t.Fatalf("bad base64 should fail")
	}
}
