package appender

import (
	"testing"

	"pg2parquet/internal/levels"
)

func asTextTest(v any) ([]byte, error) {
	return []byte(v.(string)), nil
}

func TestByteArrayAppendValueGrowsBuffer(t *testing.T) {
	a := NewByteArray(1, 0, asTextTest)
	path := levels.NewRow(0)

	if _, err := a.AppendValue(path, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.AppendValue(path, "world!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.bufLen != len("hello")+len("world!") {
		t.Fatalf("bufLen mismatch: got %d", a.bufLen)
	}
	if got := string(a.buf.Bytes()[a.starts[0] : a.starts[0]+a.lens[0]]); got != "hello" {
		t.Fatalf("first value slice: got %q", got)
	}
	if got := string(a.buf.Bytes()[a.starts[1] : a.starts[1]+a.lens[1]]); got != "world!" {
		t.Fatalf("second value slice: got %q", got)
	}
}

func TestByteArrayAppendNullRejectsDLAtOrAboveMax(t *testing.T) {
	a := NewByteArray(1, 0, asTextTest)
	path := levels.NewRow(0)

	if err := a.AppendNull(path, 1); err == nil {
		t.Fatal("expected error when dl equals maxDL")
	}
	if err := a.AppendNull(path, 0); err != nil {
		t.Fatalf("dl below maxDL should be accepted: %v", err)
	}
}

func TestFixedByteArrayRejectsWrongWidth(t *testing.T) {
	a := NewFixedByteArray(1, 0, 16, func(v any) ([]byte, error) {
		return v.([]byte), nil
	})
	path := levels.NewRow(0)

	if _, err := a.AppendValue(path, make([]byte, 15)); err == nil {
		t.Fatal("expected width mismatch error")
	}
	if _, err := a.AppendValue(path, make([]byte, 16)); err != nil {
		t.Fatalf("unexpected error for correctly-sized value: %v", err)
	}
}
