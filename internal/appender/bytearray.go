package appender

import (
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow/go/arrow/memory"
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
)

// ByteArray is the variable-length BYTE_ARRAY appender. Values
// accumulate into one contiguous arrow memory.Buffer with a side offsets
// table; at flush time the buffer is sliced in place into
// parquet.ByteArray values handed to the column writer, avoiding a
// per-value heap allocation on the hot path.
type ByteArray struct {
	maxDL, maxRL DL
	convert      func(v any) ([]byte, error)

	tracker *levels.Tracker
	buf     *memory.Buffer
	bufLen  int
	starts  []int
	lens    []int
	dls     []DL
	rls     []DL
}

func NewByteArray(maxDL, maxRL DL, convert func(v any) ([]byte, error)) *ByteArray {
	var tracker *levels.Tracker
	if maxRL > 0 {
		tracker = levels.NewTracker(int(maxRL))
	}
	return &ByteArray{
		maxDL:   maxDL,
		maxRL:   maxRL,
		convert: convert,
		tracker: tracker,
		buf:     memory.NewResizableBuffer(memory.DefaultAllocator),
	}
}

func (a *ByteArray) MaxDL() DL { return a.maxDL }
func (a *ByteArray) MaxRL() DL { return a.maxRL }

func (a *ByteArray) RealMemorySize() int {
	return a.bufLen + 2*len(a.dls) + 2*len(a.rls)
}

func (a *ByteArray) rl(path *levels.Index) DL {
	if a.tracker == nil {
		return 0
	}
	return DL(a.tracker.Diff(path))
}

func (a *ByteArray) AppendValue(path *levels.Index, v any) (int, error) {
	b, err := a.convert(v)
	if err != nil {
		return 0, errors.Trace(err)
	}
	start := a.bufLen
	newLen := start + len(b)
	if newLen > a.buf.Cap() {
		a.buf.Reserve(newLen * 2)
	}
	a.buf.Resize(newLen)
	copy(a.buf.Bytes()[start:newLen], b)
	a.bufLen = newLen
	a.starts = append(a.starts, start)
	a.lens = append(a.lens, len(b))

	size := len(b)
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

func (a *ByteArray) AppendNull(path *levels.Index, dl DL) error {
	if dl >= a.maxDL {
		return errors.Errorf("null definition level %d must be below max_dl %d", dl, a.maxDL)
	}
	a.dls = append(a.dls, dl)
	if a.maxRL > 0 {
		a.rls = append(a.rls, a.rl(path))
	}
	return nil
}

func (a *ByteArray) Flush(src ColumnWriterSource) error {
	cw, err := src.NextColumn()
	if err != nil {
		return errors.Trace(err)
	}
	defer cw.Close()

	w, ok := cw.(*file.ByteArrayColumnChunkWriter)
	if !ok {
		return errors.Errorf("expected byte-array column chunk writer, got %T", cw)
	}

	bytes := a.buf.Bytes()
	values := make([]parquet.ByteArray, len(a.starts))
	for i, start := range a.starts {
		values[i] = parquet.ByteArray(bytes[start : start+a.lens[i]])
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

	a.buf.Resize(0)
	a.bufLen = 0
	a.starts = a.starts[:0]
	a.lens = a.lens[:0]
	a.dls = a.dls[:0]
	a.rls = a.rls[:0]
	return nil
}
