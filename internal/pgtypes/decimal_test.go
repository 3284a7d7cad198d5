package pgtypes

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func numeric(unscaled int64, exp int32) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(unscaled), Exp: exp, Valid: true}
}

func TestRescaleNumericExactScale(t *testing.T) {
	// 123.45 stored as unscaled=12345, exp=-2; rescale to scale=2 is a no-op.
	n := numeric(12345, -2)
	got, err := RescaleNumeric(n, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("want 12345, got %s", got)
	}
}

func TestRescaleNumericWidensScale(t *testing.T) {
	// 123.4 (unscaled=1234, exp=-1) widened to scale=3 -> 123400.
	n := numeric(1234, -1)
	got, err := RescaleNumeric(n, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(big.NewInt(123400)) != 0 {
		t.Fatalf("want 123400, got %s", got)
	}
}

func TestRescaleNumericNarrowsWithHalfToEvenRounding(t *testing.T) {
	// 0.125 (unscaled=125, exp=-3) narrowed to scale=2: ties round to even -> 0.12 (12).
	n := numeric(125, -3)
	got, err := RescaleNumeric(n, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("want 12 (round half to even), got %s", got)
	}

	// 0.135 (unscaled=135, exp=-3) narrowed to scale=2: ties round to even -> 0.14 (14).
	n2 := numeric(135, -3)
	got2, err := RescaleNumeric(n2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2.Cmp(big.NewInt(14)) != 0 {
		t.Fatalf("want 14 (round half to even), got %s", got2)
	}
}

func TestRescaleNumericRejectsNaNAndInfinity(t *testing.T) {
	nan := pgtype.Numeric{Valid: true, NaN: true}
	if _, err := RescaleNumeric(nan, 0); err == nil {
		t.Fatal("expected error for NaN")
	}

	inf := pgtype.Numeric{Valid: true, InfinityModifier: pgtype.Infinity, Int: big.NewInt(0)}
	if _, err := RescaleNumeric(inf, 0); err == nil {
		t.Fatal("expected error for Infinity")
	}
}

func TestRescaleNumericRejectsInvalid(t *testing.T) {
	if _, err := RescaleNumeric(pgtype.Numeric{}, 0); err == nil {
		t.Fatal("expected error for NULL numeric")
	}
}

func TestFitsDigits(t *testing.T) {
	if !FitsDigits(big.NewInt(999), 3) {
		t.Fatal("999 should fit in precision 3")
	}
	if FitsDigits(big.NewInt(1000), 3) {
		t.Fatal("1000 should not fit in precision 3")
	}
	if !FitsDigits(big.NewInt(-999), 3) {
		t.Fatal("-999 should fit in precision 3 (magnitude check)")
	}
}

func TestNumericToInt32WithinRange(t *testing.T) {
	n := numeric(4200, -2) // 42.00
	v, ok := NumericToInt32(n, 2, 9)
	if !ok {
		t.Fatal("expected success")
	}
	if v != 4200 {
		t.Fatalf("want 4200, got %d", v)
	}
}

func TestNumericToInt32OverflowsPrecisionSoftFails(t *testing.T) {
	n := numeric(123456789, 0) // 9 digits, precision 5 cannot hold it
	if _, ok := NumericToInt32(n, 0, 5); ok {
		t.Fatal("expected soft failure on precision overflow")
	}
}

func TestNumericToFixedBytesRoundTripsSignedValue(t *testing.T) {
	n := numeric(-12345, 0)
	b, ok := NumericToFixedBytes(n, 0, 10, 8)
	if !ok {
		t.Fatal("expected success")
	}
	if len(b) != 8 {
		t.Fatalf("want 8 bytes, got %d", len(b))
	}
	// Two's complement round trip: reinterpret the buffer as a big-endian
	// signed integer and confirm it matches -12345.
	got := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), 8*8)
		got.Sub(got, mod)
	}
	if got.Cmp(big.NewInt(-12345)) != 0 {
		t.Fatalf("want -12345, got %s", got)
	}
}

func TestNumericToFixedBytesPositiveValue(t *testing.T) {
	n := numeric(255, 0)
	b, ok := NumericToFixedBytes(n, 0, 10, 2)
	if !ok {
		t.Fatal("expected success")
	}
	want := []byte{0x00, 0xff}
	if b[0] != want[0] || b[1] != want[1] {
		t.Fatalf("want %v, got %v", want, b)
	}
}
