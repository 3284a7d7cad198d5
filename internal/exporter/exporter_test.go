package exporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxconn "github.com/jackc/pgx/v5/pgconn"

	"pg2parquet/internal/config"
	"pg2parquet/internal/planner"
)

// fakeRows replays a fixed slice of decoded rows through the pgx.Rows
// interface, standing in for a live cursor so Driver.Run's flush logic
// can be driven without a database.
type fakeRows struct {
	rows [][]any
	idx  int
}

func (f *fakeRows) Close()                                     {}
func (f *fakeRows) Err() error                                 { return nil }
func (f *fakeRows) CommandTag() pgxconn.CommandTag             { return pgxconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgxconn.FieldDescription { return nil }
func (f *fakeRows) Next() bool                                 { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Scan(dest ...any) error                     { return nil }
func (f *fakeRows) Values() ([]any, error)                     { return f.rows[f.idx-1], nil }
func (f *fakeRows) RawValues() [][]byte                        { return nil }
func (f *fakeRows) Conn() *pgx.Conn                            { return nil }

// newTestDriver plans a single int4 column and opens a Driver over a
// temp file with the given row-group byte threshold.
func newTestDriver(t *testing.T, rowGroupBytes int64) (*Driver, string) {
	t.Helper()

	cols := []planner.Column{{
		Name: "n",
		Type: &planner.Type{OID: 23, Name: "int4", Kind: planner.KindSimple},
	}}
	root, rowField, err := planner.New(planner.DefaultSettings()).Plan(cols)
	if err != nil {
		t.Fatalf("planning test column: %v", err)
	}

	cfg := config.Config{
		Compression:   config.CompressionNone,
		RowGroupBytes: rowGroupBytes,
		PageSize:      1 << 20,
	}
	dest := filepath.Join(t.TempDir(), "out.parquet")
	d, err := NewDriver(dest, root, rowField, cfg, nil, nil)
	if err != nil {
		t.Fatalf("opening driver: %v", err)
	}
	return d, dest
}

// TestDriverRunFlushesAtByteThreshold drives three int4 rows through a
// byte limit sized to two rows' worth of buffered data: the threshold
// flush fires at a row boundary and the trailing row lands in a second,
// final row group.
func TestDriverRunFlushesAtByteThreshold(t *testing.T) {
	// One buffered int4 row costs 6 bytes (4 value + 2 definition level),
	// so 12 bytes flushes after exactly two rows.
	d, dest := newTestDriver(t, 12)

	rows := &fakeRows{rows: [][]any{{int32(1)}, {int32(2)}, {int32(3)}}}
	result, err := d.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if result.Rows != 3 {
		t.Fatalf("want 3 rows, got %d", result.Rows)
	}
	if result.RowGroups != 2 {
		t.Fatalf("want 2 row groups (threshold flush + final), got %d", result.RowGroups)
	}

	info, err := os.Stat(dest)
	if err != nil || info.Size() == 0 {
		t.Fatalf("output file missing or empty: %v", err)
	}
}

// TestDriverRunZeroRowsWritesOneEmptyRowGroup checks a zero-row result
// set still produces a valid file carrying exactly one (empty) row
// group, never zero.
func TestDriverRunZeroRowsWritesOneEmptyRowGroup(t *testing.T) {
	d, dest := newTestDriver(t, 1<<20)

	result, err := d.Run(context.Background(), &fakeRows{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if result.Rows != 0 || result.RowGroups != 1 {
		t.Fatalf("want 0 rows in 1 row group, got %d rows in %d groups", result.Rows, result.RowGroups)
	}

	info, err := os.Stat(dest)
	if err != nil || info.Size() == 0 {
		t.Fatalf("output file missing or empty: %v", err)
	}
}

// TestDriverRunNullsCountTowardRows checks a row whose only column is
// NULL still advances the row count and reaches the final flush.
func TestDriverRunNullsCountTowardRows(t *testing.T) {
	d, _ := newTestDriver(t, 1<<20)

	rows := &fakeRows{rows: [][]any{{int32(7)}, {nil}}}
	result, err := d.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if result.Rows != 2 || result.RowGroups != 1 {
		t.Fatalf("want 2 rows in 1 group, got %d rows in %d groups", result.Rows, result.RowGroups)
	}
}

func TestRowIdentifierPicksFirstPrintableColumn(t *testing.T) {
	for _, tc := range []struct {
		name string
		vals []any
		want string
	}{
		{"string first", []any{"alice", int32(7)}, `"alice"`},
		{"skips nil", []any{nil, int64(42)}, "42"},
		{"uuid", []any{[16]byte{0: 0x11, 15: 0xff}}, "11000000-0000-0000-0000-0000000000ff"},
		{"nothing printable", []any{nil, []byte{1, 2}}, "no printable key column"},
	} {
		if got := rowIdentifier(tc.vals); got != tc.want {
			t.Fatalf("%s: want %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestRowIdentifierTruncatesLongText(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	got := rowIdentifier([]any{string(long)})
	if len(got) > 50 {
		t.Fatalf("identifier should be truncated, got %d chars", len(got))
	}
}

func TestCompressionCodecCoversSpecEnum(t *testing.T) {
	for _, c := range []config.Compression{
		config.CompressionNone, config.CompressionSnappy, config.CompressionGzip,
		config.CompressionLzo, config.CompressionBrotli, config.CompressionLz4, config.CompressionZstd,
	} {
		if _, err := compressionCodec(c); err != nil {
			t.Fatalf("%s: %v", c, err)
		}
	}
	if _, err := compressionCodec(config.Compression("xz")); err == nil {
		t.Fatal("unknown compression should error")
	}
}
