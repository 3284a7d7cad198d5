package appender

import (
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/pingcap/errors"
)

// NewInt32 builds a primitive appender over Parquet's INT32 physical
// type, used for PG int2/int4, date, enum-as-int, etc.
func NewInt32(maxDL, maxRL DL, convert func(v any) (int32, error)) *Primitive[int32] {
	return NewPrimitive(maxDL, maxRL, 4, convert, func(cw file.ColumnChunkWriter, values []int32, dls, rls []int16) (int64, error) {
		w, ok := cw.(*file.Int32ColumnChunkWriter)
		if !ok {
			return 0, errors.Errorf("expected int32 column chunk writer, got %T", cw)
		}
		return w.WriteBatch(values, dls, rls)
	})
}

// NewInt64 builds a primitive appender over Parquet's INT64 physical
// type, used for PG int8, money, timestamps, bigint-backed decimals.
func NewInt64(maxDL, maxRL DL, convert func(v any) (int64, error)) *Primitive[int64] {
	return NewPrimitive(maxDL, maxRL, 8, convert, func(cw file.ColumnChunkWriter, values []int64, dls, rls []int16) (int64, error) {
		w, ok := cw.(*file.Int64ColumnChunkWriter)
		if !ok {
			return 0, errors.Errorf("expected int64 column chunk writer, got %T", cw)
		}
		return w.WriteBatch(values, dls, rls)
	})
}

// NewFloat32 builds a primitive appender over Parquet's FLOAT physical
// type, used for PG real and pgvector halfvec/vector elements.
func NewFloat32(maxDL, maxRL DL, convert func(v any) (float32, error)) *Primitive[float32] {
	return NewPrimitive(maxDL, maxRL, 4, convert, func(cw file.ColumnChunkWriter, values []float32, dls, rls []int16) (int64, error) {
		w, ok := cw.(*file.Float32ColumnChunkWriter)
		if !ok {
			return 0, errors.Errorf("expected float32 column chunk writer, got %T", cw)
		}
		return w.WriteBatch(values, dls, rls)
	})
}

// NewFloat64 builds a primitive appender over Parquet's DOUBLE physical
// type, the default numeric-handling policy target.
func NewFloat64(maxDL, maxRL DL, convert func(v any) (float64, error)) *Primitive[float64] {
	return NewPrimitive(maxDL, maxRL, 8, convert, func(cw file.ColumnChunkWriter, values []float64, dls, rls []int16) (int64, error) {
		w, ok := cw.(*file.Float64ColumnChunkWriter)
		if !ok {
			return 0, errors.Errorf("expected float64 column chunk writer, got %T", cw)
		}
		return w.WriteBatch(values, dls, rls)
	})
}

// NewBool builds a primitive appender over Parquet's BOOLEAN physical
// type, used for PG bool.
func NewBool(maxDL, maxRL DL, convert func(v any) (bool, error)) *Primitive[bool] {
	return NewPrimitive(maxDL, maxRL, 1, convert, func(cw file.ColumnChunkWriter, values []bool, dls, rls []int16) (int64, error) {
		w, ok := cw.(*file.BooleanColumnChunkWriter)
		if !ok {
			return 0, errors.Errorf("expected boolean column chunk writer, got %T", cw)
		}
		return w.WriteBatch(values, dls, rls)
	})
}
