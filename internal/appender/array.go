package appender

import (
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
)

// Array wraps an inner appender and emits one child repetition per
// element, implementing Parquet's canonical LIST group. The
// inner appender's own MaxRL is this appender's MaxRL+1 and its MaxDL is
// this appender's MaxDL+2: one level for the repeated group and one for
// the element's own optionality (PostgreSQL array element types are always
// treated as nullable, since any element type can be NULL inside an
// array).
//
// Elements are supplied as a []any, with a nil entry denoting a NULL
// element; this is the one place in the tree where type erasure is
// unavoidable, since a PostgreSQL array's element type is only known at
// plan time, not at Go's type-system level.
type Array struct {
	maxDL, maxRL DL
	inner        Appender
}

func NewArray(maxDL, maxRL DL, inner Appender) *Array {
	return &Array{maxDL: maxDL, maxRL: maxRL, inner: inner}
}

func (a *Array) MaxDL() DL { return a.maxDL }
func (a *Array) MaxRL() DL { return a.maxRL }

func (a *Array) RealMemorySize() int { return a.inner.RealMemorySize() }

func (a *Array) AppendValue(path *levels.Index, v any) (int, error) {
	elems, ok := v.([]any)
	if !ok {
		return 0, errors.Errorf("array appender expects []any elements, got %T", v)
	}

	childPath := path.Child()

	if len(elems) == 0 {
		// An empty array is a present-but-empty list: one record at the
		// list's own optional level, not one DL lower (that would be a
		// NULL list, a distinct case handled by AppendNull).
		if err := a.inner.AppendNull(childPath, a.maxDL); err != nil {
			return 0, errors.Trace(err)
		}
		return 0, nil
	}

	total := 0
	for _, e := range elems {
		if e == nil {
			if err := a.inner.AppendNull(childPath, a.maxDL+1); err != nil {
				return total, errors.Trace(err)
			}
		} else {
			n, err := a.inner.AppendValue(childPath, e)
			if errors.Cause(err) == ErrSoftNull {
				if nerr := a.inner.AppendNull(childPath, a.inner.MaxDL()-1); nerr != nil {
					return total, errors.Trace(nerr)
				}
			} else if err != nil {
				return total, errors.Trace(err)
			} else {
				total += n
			}
		}
		childPath.Inc()
	}
	return total, nil
}

// AppendNull represents a NULL array (not an empty one): it propagates
// dl, one level below this appender's own MaxDL, to a single child
// record at the next repetition level.
func (a *Array) AppendNull(path *levels.Index, dl DL) error {
	return a.inner.AppendNull(path.Child(), dl)
}

func (a *Array) Flush(src ColumnWriterSource) error {
	return a.inner.Flush(src)
}
