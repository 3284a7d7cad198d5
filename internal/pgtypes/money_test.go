package pgtypes

import (
	"encoding/binary"
	"testing"
)

func TestDecodeMoney(t *testing.T) {
	b := make([]byte, 8)
	v := int64(-12345)
	binary.BigEndian.PutUint64(b, uint64(v))
	if got := DecodeMoney(b); got != -12345 {
		t.Fatalf("want -12345, got %d", got)
	}
}
