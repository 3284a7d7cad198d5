package pgtypes

import (
	"encoding/binary"
	"testing"
)

func encodeIntervalWire(micros int64, days, months int32) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], uint64(micros))
	binary.BigEndian.PutUint32(b[8:12], uint32(days))
	binary.BigEndian.PutUint32(b[12:16], uint32(months))
	return b
}

func TestDecodeIntervalRoundTrips(t *testing.T) {
	wire := encodeIntervalWire(1_500_000, 10, 3)
	iv, err := DecodeInterval(wire)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv.Microseconds != 1_500_000 || iv.Days != 10 || iv.Months != 3 {
		t.Fatalf("decoded mismatch: %+v", iv)
	}
}

func TestDecodeIntervalRejectsWrongLength(t *testing.T) {
	if _, err := DecodeInterval(make([]byte, 15)); err == nil {
		t.Fatal("expected error for short payload")
	}
	if _, err := DecodeInterval(make([]byte, 17)); err == nil {
		t.Fatal("expected error for long payload")
	}
}

func TestParquetIntervalFoldsSecondsIntoDays(t *testing.T) {
	const msPerDay = 1000 * 60 * 60 * 24
	iv := Interval{Microseconds: int64(msPerDay+500) * 1000, Days: 2, Months: 1}
	b := ParquetInterval(iv)

	months := binary.LittleEndian.Uint32(b[0:4])
	days := binary.LittleEndian.Uint32(b[4:8])
	millis := binary.LittleEndian.Uint32(b[8:12])

	if months != 1 {
		t.Fatalf("want months=1, got %d", months)
	}
	if days != 3 {
		t.Fatalf("want days=3 (2 + 1 day overflow), got %d", days)
	}
	if millis != 500 {
		t.Fatalf("want millis=500, got %d", millis)
	}
}

func TestParquetIntervalTruncatesSubMillisecond(t *testing.T) {
	iv := Interval{Microseconds: 999, Days: 0, Months: 0}
	b := ParquetInterval(iv)
	millis := binary.LittleEndian.Uint32(b[8:12])
	if millis != 0 {
		t.Fatalf("want sub-millisecond truncated to 0, got %d", millis)
	}
}
