package pgtypes

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func encodeRangeWire(flags byte, bounds ...[]byte) []byte {
	out := []byte{flags}
	for _, b := range bounds {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(b)))
		out = append(out, l[:]...)
		out = append(out, b...)
	}
	return out
}

func int4Wire(v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func TestDecodeRangeBounded(t *testing.T) {
	// [1,5): lower inclusive, upper exclusive, both bounds present.
	wire := encodeRangeWire(rangeLBInc, int4Wire(1), int4Wire(5))

	r, err := DecodeRange(wire)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Empty {
		t.Fatal("bounded range decoded as empty")
	}
	if !r.LowerInclusive || r.UpperInclusive {
		t.Fatalf("inclusivity mismatch: lower=%v upper=%v", r.LowerInclusive, r.UpperInclusive)
	}
	if !bytes.Equal(r.Lower, int4Wire(1)) || !bytes.Equal(r.Upper, int4Wire(5)) {
		t.Fatalf("bound bytes mismatch: lower=%v upper=%v", r.Lower, r.Upper)
	}
}

func TestDecodeRangeEmpty(t *testing.T) {
	r, err := DecodeRange([]byte{rangeEmpty})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Empty || r.Lower != nil || r.Upper != nil {
		t.Fatalf("empty range should carry no bounds: %+v", r)
	}
}

func TestDecodeRangeInfiniteBounds(t *testing.T) {
	// (-inf, 5): only the upper bound payload is on the wire.
	wire := encodeRangeWire(rangeLBInf, int4Wire(5))

	r, err := DecodeRange(wire)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Lower != nil {
		t.Fatalf("infinite lower bound should decode to nil, got %v", r.Lower)
	}
	if !bytes.Equal(r.Upper, int4Wire(5)) {
		t.Fatalf("upper bound mismatch: %v", r.Upper)
	}
}

func TestDecodeRangeTruncatedBound(t *testing.T) {
	wire := encodeRangeWire(0, int4Wire(1), int4Wire(5))
	if _, err := DecodeRange(wire[:len(wire)-2]); err == nil {
		t.Fatal("expected error for truncated bound payload")
	}
}
