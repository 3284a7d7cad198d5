// Package appender implements the per-column state machines that turn
// decoded PostgreSQL values into (value, definition-level,
// repetition-level) triples ready for a Parquet column chunk writer.
//
// Buffers are plain slices that accumulate until a row-group flush,
// and flushing calls straight into the arrow-go file.ColumnChunkWriter
// for the concrete physical type.
package appender

import (
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
)

// DL and RL are Parquet's Dremel level types; arrow-go's column chunk
// writers take []int16 for both.
type DL = int16
type RL = int16

// ColumnWriterSource hands out column chunk writers in schema-leaf
// order. *file.SerialRowGroupWriter satisfies it directly.
type ColumnWriterSource interface {
	NextColumn() (file.ColumnChunkWriter, error)
}

// Appender is the common interface every node of the tree presents to
// its parent, regardless of whether it is a leaf (primitive/byte-array)
// or structural (array/struct/row-field). Appenders are built once by
// the schema planner and then driven once per row for the life of the
// export.
type Appender interface {
	// AppendValue appends one non-null logical value at the given
	// nesting path and returns an approximate count of bytes buffered,
	// used only for row-group flush thresholds.
	AppendValue(path *levels.Index, v any) (int, error)

	// AppendNull appends a NULL marker. dl must be strictly less than
	// MaxDL; it records how many optional/list ancestors were actually
	// present for this (absent) record.
	AppendNull(path *levels.Index, dl DL) error

	// Flush drains every buffered value into column chunks pulled from
	// src, in schema-leaf order, and clears the appender's buffers.
	Flush(src ColumnWriterSource) error

	MaxDL() DL
	MaxRL() DL

	RealMemorySize
}

// RealMemorySize reports the logical number of bytes currently buffered
// and not yet flushed, for row-group byte budgeting (a monotone
// nondecreasing estimate between flushes, never exact).
type RealMemorySize interface {
	RealMemorySize() int
}

// ErrSoftNull is a sentinel AppendValue may return instead of a fatal
// error: the caller should coerce the value to NULL (at whatever DL one
// below the leaf's MaxDL means "absent at this leaf only") and continue,
// rather than aborting the export.
var ErrSoftNull = errors.New("appender: soft-overflow, coerce value to NULL")

// errColumnPath annotates an error with the dotted path of the column
// that produced it: every appender operation returns a message with the
// column path prefixed as it bubbles up.
func errColumnPath(path string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Annotatef(err, "column %s", path)
}
