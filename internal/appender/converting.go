package appender

import (
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
)

// Converting reshapes a decoded value before handing it to inner,
// without adding a nesting level of its own. The planner uses it to
// bridge a pgx-decoded wire struct (pgtypes.Vector, pgtypes.SparseVec)
// into the []any shape Array expects, and to decode nested wire bytes
// (range bounds, composite fields, array elements) before a leaf sees them.
type Converting struct {
	inner   Appender
	convert func(v any) (any, error)
}

func NewConverting(inner Appender, convert func(v any) (any, error)) *Converting {
	return &Converting{inner: inner, convert: convert}
}

func (c *Converting) MaxDL() DL { return c.inner.MaxDL() }
func (c *Converting) MaxRL() DL { return c.inner.MaxRL() }

func (c *Converting) RealMemorySize() int { return c.inner.RealMemorySize() }

func (c *Converting) AppendValue(path *levels.Index, v any) (int, error) {
	cv, err := c.convert(v)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return c.inner.AppendValue(path, cv)
}

func (c *Converting) AppendNull(path *levels.Index, dl DL) error {
	return c.inner.AppendNull(path, dl)
}

func (c *Converting) Flush(src ColumnWriterSource) error {
	return c.inner.Flush(src)
}
