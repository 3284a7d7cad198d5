package pgtypes

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// RawComposite is a decoded composite (row) value with its fields still
// as raw wire bytes. Each field's OID is carried on the wire itself and
// kept here; the planner decodes the fields by position with the OIDs of
// the declared field types it resolved from the catalog, and does not
// compare them against these wire OIDs.
type RawComposite struct {
	Fields []RawCompositeField
}

type RawCompositeField struct {
	OID   uint32
	Bytes []byte // nil means SQL NULL
}

// DecodeComposite parses {num_cols:i32} followed by num_cols *
// {oid:i32, len:i32, bytes}, with len == -1 meaning the field is NULL.
func DecodeComposite(src []byte) (RawComposite, error) {
	if len(src) < 4 {
		return RawComposite{}, errors.Errorf("composite: payload too short (%d bytes)", len(src))
	}
	numCols := int32(binary.BigEndian.Uint32(src[0:4]))
	off := 4

	fields := make([]RawCompositeField, 0, numCols)
	for i := int32(0); i < numCols; i++ {
		if off+8 > len(src) {
			return RawComposite{}, errors.New("composite: truncated field header")
		}
		oid := binary.BigEndian.Uint32(src[off : off+4])
		length := int32(binary.BigEndian.Uint32(src[off+4 : off+8]))
		off += 8

		if length < 0 {
			fields = append(fields, RawCompositeField{OID: oid, Bytes: nil})
			continue
		}
		if off+int(length) > len(src) {
			return RawComposite{}, errors.New("composite: truncated field payload")
		}
		fields = append(fields, RawCompositeField{OID: oid, Bytes: src[off : off+int(length)]})
		off += int(length)
	}

	return RawComposite{Fields: fields}, nil
}
