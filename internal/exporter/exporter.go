// Package exporter drives one export end to end: it owns the output
// Parquet file, decides when a row group is full, and pumps decoded
// rows from a pgx.Rows cursor through the planner's appender tree.
package exporter

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pingcap/errors"

	"pg2parquet/internal/appender"
	"pg2parquet/internal/config"
	"pg2parquet/internal/planner"
	"pg2parquet/internal/util"
)

// Result summarizes one completed export for the final summary line.
type Result struct {
	Rows            int64
	RowGroups       int32
	BytesWritten    int64
	SoftNullCoerced int
}

// countingWriter feeds every write's byte count to a ProgressLogger on
// the way to the destination file.
type countingWriter struct {
	w        *os.File
	progress *util.ProgressLogger
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if cw.progress != nil {
		cw.progress.AddBytes(int64(n))
	}
	return n, err
}

func compressionCodec(c config.Compression) (compress.Compression, error) {
	switch c {
	case config.CompressionNone:
		return compress.Codecs.Uncompressed, nil
	case config.CompressionSnappy:
		return compress.Codecs.Snappy, nil
	case config.CompressionGzip:
		return compress.Codecs.Gzip, nil
	case config.CompressionLzo:
		return compress.Codecs.Lzo, nil
	case config.CompressionBrotli:
		return compress.Codecs.Brotli, nil
	case config.CompressionLz4:
		return compress.Codecs.Lz4Raw, nil
	case config.CompressionZstd:
		return compress.Codecs.Zstd, nil
	default:
		return compress.Codecs.Uncompressed, errors.Errorf("unsupported compression %q", c)
	}
}

func writerProperties(cfg config.Config) (*parquet.WriterProperties, error) {
	codec, err := compressionCodec(cfg.Compression)
	if err != nil {
		return nil, errors.Trace(err)
	}
	opts := []parquet.WriterProperty{
		parquet.WithCreatedBy("pg2parquet"),
		parquet.WithDataPageSize(cfg.PageSize),
		parquet.WithDataPageVersion(parquet.DataPageV2),
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithCompression(codec),
	}
	if cfg.CompressionLevel != nil {
		opts = append(opts, parquet.WithCompressionLevel(config.ClampCompressionLevel(*cfg.CompressionLevel, cfg.Compression)))
	}
	return parquet.NewWriterProperties(opts...), nil
}

// Driver owns the output file's lifetime across possibly many row
// groups: it buffers appended rows until
// either the configured byte budget is exceeded or the source cursor is
// exhausted, then flushes exactly one Parquet row group per threshold
// crossing.
type Driver struct {
	w             *file.Writer
	cw            *countingWriter
	rowField      *appender.RowField
	rowGroupBytes int64
	rowGroupRows  int64
	progress      *util.ProgressLogger
	warn          *util.WarnOnce

	bufferedBytes int64
	bufferedRows  int64
	result        Result
}

// NewDriver opens destPath and prepares it to receive row groups built
// from root/rowField (the planner's output for this export's column
// list).
func NewDriver(destPath string, root *schema.GroupNode, rowField *appender.RowField, cfg config.Config, progress *util.ProgressLogger, warn *util.WarnOnce) (*Driver, error) {
	props, err := writerProperties(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return nil, errors.Annotatef(err, "creating %s", destPath)
	}
	cw := &countingWriter{w: f, progress: progress}

	w := file.NewParquetWriter(cw, root, file.WithWriterProps(props))

	return &Driver{
		w:             w,
		cw:            cw,
		rowField:      rowField,
		rowGroupBytes: cfg.RowGroupBytes,
		rowGroupRows:  props.MaxRowGroupLength(),
		progress:      progress,
		warn:          warn,
	}, nil
}

// Run streams every row pgx.Rows yields through the appender tree,
// flushing a row group each time rowGroupBytes worth of buffered column
// data has accumulated, and once more for the final partial group.
func (d *Driver) Run(ctx context.Context, rows pgx.Rows) (Result, error) {
	defer rows.Close()

	rowIndex := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return d.result, errors.Trace(err)
		}

		vals, err := rows.Values()
		if err != nil {
			return d.result, errors.Annotate(err, "reading row values")
		}

		n, err := d.rowField.AppendRow(rowIndex, vals)
		if err != nil {
			return d.result, errors.Annotatef(err, "row %d (%s)", rowIndex, rowIdentifier(vals))
		}

		d.bufferedBytes += int64(n)
		d.bufferedRows++
		d.result.Rows++
		rowIndex++
		if d.progress != nil {
			d.progress.AddRows(1)
		}

		if d.bufferedBytes >= d.rowGroupBytes || d.bufferedRows >= d.rowGroupRows {
			if err := d.flush(); err != nil {
				return d.result, errors.Trace(err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return d.result, errors.Annotate(err, "iterating rows")
	}

	// A zero-row result set still produces one (empty) row group rather
	// than none, so the output file always carries a row group matching
	// its schema.
	if d.bufferedRows > 0 || d.result.RowGroups == 0 {
		if err := d.flush(); err != nil {
			return d.result, errors.Trace(err)
		}
	}

	if d.warn != nil {
		d.result.SoftNullCoerced = d.warn.Count()
	}
	return d.result, nil
}

func (d *Driver) flush() error {
	rgw := d.w.AppendRowGroup()
	if err := d.rowField.Flush(rgw); err != nil {
		rgw.Close()
		return errors.Trace(err)
	}
	if err := rgw.Close(); err != nil {
		return errors.Trace(err)
	}

	d.bufferedBytes = 0
	d.bufferedRows = 0
	d.result.RowGroups++
	if d.progress != nil {
		d.progress.AddRowGroup(1)
	}
	return nil
}

// Close finalizes the Parquet footer and closes the destination file.
// It must run even when Run returned an error, so a partially written
// file at least carries a valid footer for whatever row groups did flush.
func (d *Driver) Close() error {
	if err := d.w.Close(); err != nil {
		d.cw.w.Close()
		return errors.Annotate(err, "closing parquet writer")
	}
	return errors.Trace(d.cw.w.Close())
}

// rowIdentifier derives a human-readable handle for a failing row from
// the first column holding a printable scalar (text, int, oid, uuid),
// so decode errors deep inside the appender tree point back at a row
// the user can actually find.
func rowIdentifier(vals []any) string {
	for _, v := range vals {
		switch t := v.(type) {
		case string:
			if len(t) > 40 {
				t = t[:40] + "…"
			}
			return fmt.Sprintf("%q", t)
		case int16, int32, int64, uint32:
			return fmt.Sprintf("%d", t)
		case [16]byte:
			return uuid.UUID(t).String()
		}
	}
	return "no printable key column"
}

// Plan runs the schema planner over cols and opens a Driver ready to
// receive rows for them, tying planner.Planner + pgconn's catalog output
// together the way cmd/pg2parquet's export subcommand needs. decode is
// the connection-backed nested-value decoder (pgconn.NewWireDecoder).
func Plan(destPath string, cols []planner.Column, decode planner.WireDecodeFunc, cfg config.Config, progress *util.ProgressLogger, warn *util.WarnOnce) (*Driver, error) {
	p := planner.NewWithDecoder(cfg.Settings, decode)
	root, rowField, err := p.Plan(cols)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewDriver(destPath, root, rowField, cfg, progress, warn)
}
