package appender

import (
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
)

// RowField wraps the root-level column appenders and is the entry point
// the exporter drives once per row. It differs from Struct
// only in how it is invoked: its AppendRow takes the whole decoded
// pgx row ([]any in column order) rather than a single column's value,
// and it always operates at DL/RL 0 since there is no enclosing
// optional or repeated ancestor above a row.
type RowField struct {
	columns []Appender
	names   []string
}

func NewRowField(names []string, columns []Appender) *RowField {
	if len(names) != len(columns) {
		panic("appender.NewRowField: names and columns must have equal length")
	}
	return &RowField{columns: columns, names: names}
}

// AppendRow appends one decoded row, addressed by rowIndex for
// repetition-level tracking inside any nested arrays. vals must have one
// entry per column, in schema order; a nil entry is a SQL NULL.
func (r *RowField) AppendRow(rowIndex int, vals []any) (int, error) {
	if len(vals) != len(r.columns) {
		return 0, errors.Errorf("row has %d values, schema expects %d", len(vals), len(r.columns))
	}

	path := levels.NewRow(rowIndex)
	total := 0
	for i, col := range r.columns {
		if vals[i] == nil {
			if err := col.AppendNull(path, col.MaxDL()-1); err != nil {
				return total, errors.Annotatef(err, "column %s", r.names[i])
			}
			continue
		}
		n, err := col.AppendValue(path, vals[i])
		if errors.Cause(err) == ErrSoftNull {
			if nerr := col.AppendNull(path, col.MaxDL()-1); nerr != nil {
				return total, errors.Annotatef(nerr, "column %s", r.names[i])
			}
			continue
		}
		if err != nil {
			return total, errors.Annotatef(err, "column %s", r.names[i])
		}
		total += n
	}
	return total, nil
}

// RealMemorySize reports the bytes buffered across every column since
// the last flush. It can exceed the sum of AppendRow's return values,
// which do not count the level slots buffered for NULL markers.
func (r *RowField) RealMemorySize() int {
	total := 0
	for _, col := range r.columns {
		total += col.RealMemorySize()
	}
	return total
}

// Flush drains every root column's buffers into the row group, in
// schema-leaf order.
func (r *RowField) Flush(src ColumnWriterSource) error {
	for i, col := range r.columns {
		if err := col.Flush(src); err != nil {
			return errors.Annotatef(err, "column %s", r.names[i])
		}
	}
	return nil
}
