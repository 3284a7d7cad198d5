package appender

import (
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
)

// FixedByteArray is the fixed-width FIXED_LEN_BYTE_ARRAY appender,
// used for UUID (16 bytes), macaddr (6 bytes), and the
// FIXED_LEN_BYTE_ARRAY-backed DECIMAL storage for precision > 18.
type FixedByteArray struct {
	maxDL, maxRL DL
	width        int
	convert      func(v any) ([]byte, error)

	tracker *levels.Tracker
	buf     []byte
	dls     []DL
	rls     []DL
}

func NewFixedByteArray(maxDL, maxRL DL, width int, convert func(v any) ([]byte, error)) *FixedByteArray {
	var tracker *levels.Tracker
	if maxRL > 0 {
		tracker = levels.NewTracker(int(maxRL))
	}
	return &FixedByteArray{maxDL: maxDL, maxRL: maxRL, width: width, convert: convert, tracker: tracker}
}

func (a *FixedByteArray) MaxDL() DL { return a.maxDL }
func (a *FixedByteArray) MaxRL() DL { return a.maxRL }

func (a *FixedByteArray) RealMemorySize() int {
	return len(a.buf) + 2*len(a.dls) + 2*len(a.rls)
}

func (a *FixedByteArray) rl(path *levels.Index) DL {
	if a.tracker == nil {
		return 0
	}
	return DL(a.tracker.Diff(path))
}

func (a *FixedByteArray) AppendValue(path *levels.Index, v any) (int, error) {
	b, err := a.convert(v)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if len(b) != a.width {
		return 0, errors.Errorf("fixed-width value has %d bytes, expected %d", len(b), a.width)
	}
	a.buf = append(a.buf, b...)

	size := a.width
	if a.maxDL > 0 {
		a.dls = append(a.dls, a.maxDL)
		size += 2
	}
	if a.maxRL > 0 {
		a.rls = append(a.rls, a.rl(path))
		size += 2
	}
	return size, nil
}

func (a *FixedByteArray) AppendNull(path *levels.Index, dl DL) error {
	if dl >= a.maxDL {
		return errors.Errorf("null definition level %d must be below max_dl %d", dl, a.maxDL)
	}
	a.dls = append(a.dls, dl)
	if a.maxRL > 0 {
		a.rls = append(a.rls, a.rl(path))
	}
	return nil
}

func (a *FixedByteArray) Flush(src ColumnWriterSource) error {
	if len(a.buf)%a.width != 0 {
		return errors.Errorf("fixed byte buffer length %d is not a multiple of width %d", len(a.buf), a.width)
	}

	cw, err := src.NextColumn()
	if err != nil {
		return errors.Trace(err)
	}
	defer cw.Close()

	w, ok := cw.(*file.FixedLenByteArrayColumnChunkWriter)
	if !ok {
		return errors.Errorf("expected fixed-len byte-array column chunk writer, got %T", cw)
	}

	n := len(a.buf) / a.width
	values := make([]parquet.FixedLenByteArray, n)
	for i := 0; i < n; i++ {
		values[i] = parquet.FixedLenByteArray(a.buf[i*a.width : (i+1)*a.width])
	}

	var dls, rls []int16
	if a.maxDL > 0 {
		dls = a.dls
	}
	if a.maxRL > 0 {
		rls = a.rls
	}

	if _, err := w.WriteBatch(values, dls, rls); err != nil {
		return errors.Trace(err)
	}

	a.buf = a.buf[:0]
	a.dls = a.dls[:0]
	a.rls = a.rls[:0]
	return nil
}
