package appender

import (
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
)

// Primitive buffers a converted fixed-width value plus its DL/RL.
// TPQ is the Parquet-side physical Go type (int32, int64,
// float32, float64, bool); byte-array flavours live in bytearray.go and
// fixedbytearray.go because they need an offset table instead of a
// flat value slice.
type Primitive[TPQ any] struct {
	maxDL, maxRL DL
	convert      func(v any) (TPQ, error)
	writeBatch   func(cw file.ColumnChunkWriter, values []TPQ, dls, rls []int16) (int64, error)

	tracker *levels.Tracker
	values  []TPQ
	dls     []DL
	rls     []DL
	valSize int
}

// NewPrimitive builds a primitive appender. valSize is sizeof(TPQ) and
// only affects the RealMemorySize estimate, not correctness.
func NewPrimitive[TPQ any](
	maxDL, maxRL DL,
	valSize int,
	convert func(v any) (TPQ, error),
	writeBatch func(cw file.ColumnChunkWriter, values []TPQ, dls, rls []int16) (int64, error),
) *Primitive[TPQ] {
	var tracker *levels.Tracker
	if maxRL > 0 {
		tracker = levels.NewTracker(int(maxRL))
	}
	return &Primitive[TPQ]{
		maxDL:      maxDL,
		maxRL:      maxRL,
		convert:    convert,
		writeBatch: writeBatch,
		tracker:    tracker,
		valSize:    valSize,
	}
}

func (a *Primitive[TPQ]) MaxDL() DL { return a.maxDL }
func (a *Primitive[TPQ]) MaxRL() DL { return a.maxRL }

func (a *Primitive[TPQ]) RealMemorySize() int {
	return len(a.values)*a.valSize + 2*len(a.dls) + 2*len(a.rls)
}

func (a *Primitive[TPQ]) rl(path *levels.Index) DL {
	if a.tracker == nil {
		return 0
	}
	return DL(a.tracker.Diff(path))
}

func (a *Primitive[TPQ]) AppendValue(path *levels.Index, v any) (int, error) {
	converted, err := a.convert(v)
	if err != nil {
		return 0, errors.Trace(err)
	}
	a.values = append(a.values, converted)
	size := a.valSize
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

func (a *Primitive[TPQ]) AppendNull(path *levels.Index, dl DL) error {
	if dl >= a.maxDL {
		return errors.Errorf("null definition level %d must be below max_dl %d", dl, a.maxDL)
	}
	// Parquet's Dremel encoding omits the value slot at sub-maximal DL.
	a.dls = append(a.dls, dl)
	if a.maxRL > 0 {
		a.rls = append(a.rls, a.rl(path))
	}
	return nil
}

func (a *Primitive[TPQ]) Flush(src ColumnWriterSource) error {
	cw, err := src.NextColumn()
	if err != nil {
		return errors.Trace(err)
	}
	defer cw.Close()

	var dls, rls []int16
	if a.maxDL > 0 {
		dls = a.dls
	}
	if a.maxRL > 0 {
		rls = a.rls
	}

	if _, err := a.writeBatch(cw, a.values, dls, rls); err != nil {
		return errors.Trace(err)
	}

	a.values = a.values[:0]
	a.dls = a.dls[:0]
	a.rls = a.rls[:0]
	return nil
}
