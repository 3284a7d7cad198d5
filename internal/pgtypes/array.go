package pgtypes

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// RawArray is a multi-dimensional PostgreSQL array with its elements
// still undecoded: each entry of Elems is either nil (a SQL NULL
// element) or the element's raw wire bytes, left for the planner to
// finish decoding with the element type it resolved from the catalog
// (ElemOID is the element OID from the wire header). Flattening an
// n-dimensional array into Parquet's single-level LIST nesting is the
// planner's job, not this decoder's; Dims records the original shape so
// the planner can choose how.
type RawArray struct {
	ElemOID     uint32
	Dims        []int32
	LowerBounds []int32
	Elems       []RawArrayElem
}

type RawArrayElem struct {
	Bytes []byte // nil means SQL NULL
}

// DecodeArray parses PostgreSQL's generic array wire format:
// {ndim:i32, has_nulls:i32, elem_oid:i32} followed by ndim *
// {len:i32, lower_bound:i32}, followed by the flattened elements, each
// {len:i32, bytes} with len == -1 meaning NULL.
func DecodeArray(src []byte) (RawArray, error) {
	if len(src) < 12 {
		return RawArray{}, errors.Errorf("array: payload too short (%d bytes)", len(src))
	}
	ndim := int32(binary.BigEndian.Uint32(src[0:4]))
	elemOID := binary.BigEndian.Uint32(src[8:12])
	off := 12

	if ndim == 0 {
		return RawArray{ElemOID: elemOID}, nil
	}

	dims := make([]int32, ndim)
	lowerBounds := make([]int32, ndim)
	count := int64(1)
	for d := int32(0); d < ndim; d++ {
		if off+8 > len(src) {
			return RawArray{}, errors.New("array: truncated dimension header")
		}
		dims[d] = int32(binary.BigEndian.Uint32(src[off : off+4]))
		lowerBounds[d] = int32(binary.BigEndian.Uint32(src[off+4 : off+8]))
		off += 8
		count *= int64(dims[d])
	}

	elems := make([]RawArrayElem, 0, count)
	for off < len(src) {
		if off+4 > len(src) {
			return RawArray{}, errors.New("array: truncated element length")
		}
		elemLen := int32(binary.BigEndian.Uint32(src[off : off+4]))
		off += 4
		if elemLen < 0 {
			elems = append(elems, RawArrayElem{Bytes: nil})
			continue
		}
		if off+int(elemLen) > len(src) {
			return RawArray{}, errors.New("array: truncated element payload")
		}
		elems = append(elems, RawArrayElem{Bytes: src[off : off+int(elemLen)]})
		off += int(elemLen)
	}

	return RawArray{ElemOID: elemOID, Dims: dims, LowerBounds: lowerBounds, Elems: elems}, nil
}
