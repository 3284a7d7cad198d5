package pgconn

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pingcap/errors"

	"pg2parquet/internal/planner"
)

// NewWireDecoder adapts a connection's type map into the planner's
// nested-value decoder: values buried inside ranges, composites and
// arrays come back from the raw splitters as undecoded wire bytes, and
// the planner hands them here together with the OID it learned from the
// catalog. Unknown OIDs fall back to the raw bytes, matching what
// pgx.Rows.Values does for a top-level column it has no codec for.
func NewWireDecoder(m *pgtype.Map) planner.WireDecodeFunc {
	return func(oid uint32, src []byte) (any, error) {
		if dt, ok := m.TypeForOID(oid); ok {
			v, err := dt.Codec.DecodeValue(m, oid, pgtype.BinaryFormatCode, src)
			if err != nil {
				return nil, errors.Annotatef(err, "decoding nested %s value", dt.Name)
			}
			return v, nil
		}
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	}
}
