package pgtypes

import (
	"encoding/binary"
	"math"

	"github.com/pingcap/errors"
)

// Vector is a decoded pgvector `vector` value: a dense slice of float32
// elements, planned as a LIST<FLOAT> column.
type Vector struct {
	Elems []float32
}

// HalfVec is a decoded pgvector `halfvec` value. Elements are widened to
// float32 on decode unless the column's float16-handling policy asks
// to keep them as raw half-precision bits, in which case the planner
// reads Raw instead of Elems.
type HalfVec struct {
	Elems []float32
	Raw   []uint16
}

// SparseVec is a decoded pgvector `sparsevec` value: paired (index,
// value) entries over a logical dimension of Dim, planned as a
// MAP<UINT32, FLOAT> column. Indices are shifted to 1-based on decode to
// match pgvector's own text representation, since the wire format itself
// carries 0-based offsets.
type SparseVec struct {
	Dim     int32
	Indices []uint32
	Values  []float32
}

// DecodeVector parses the wire payload {dim:u16 BE, unused:u16 BE,
// elems: dim * f32 BE}.
func DecodeVector(src []byte) (Vector, error) {
	if len(src) < 4 {
		return Vector{}, errors.Errorf("vector: payload too short (%d bytes)", len(src))
	}
	dim := int(binary.BigEndian.Uint16(src[0:2]))
	rest := src[4:]
	if len(rest) != dim*4 {
		return Vector{}, errors.Errorf("vector: expected %d bytes of elements, got %d", dim*4, len(rest))
	}
	elems := make([]float32, dim)
	for i := 0; i < dim; i++ {
		elems[i] = math.Float32frombits(binary.BigEndian.Uint32(rest[i*4 : i*4+4]))
	}
	return Vector{Elems: elems}, nil
}

// DecodeHalfVec parses the wire payload {dim:u16 BE, unused:u16 BE,
// elems: dim * f16 BE}.
func DecodeHalfVec(src []byte) (HalfVec, error) {
	if len(src) < 4 {
		return HalfVec{}, errors.Errorf("halfvec: payload too short (%d bytes)", len(src))
	}
	dim := int(binary.BigEndian.Uint16(src[0:2]))
	rest := src[4:]
	if len(rest) != dim*2 {
		return HalfVec{}, errors.Errorf("halfvec: expected %d bytes of elements, got %d", dim*2, len(rest))
	}
	raw := make([]uint16, dim)
	elems := make([]float32, dim)
	for i := 0; i < dim; i++ {
		bits := binary.BigEndian.Uint16(rest[i*2 : i*2+2])
		raw[i] = bits
		elems[i] = float16ToFloat32(bits)
	}
	return HalfVec{Elems: elems, Raw: raw}, nil
}

// DecodeSparseVec parses the wire payload {dim:i32 BE, nnz:i32 BE,
// unused:i32 BE, indices: nnz * i32 BE, values: nnz * f32 BE}, shifting
// each 0-based wire index to pgvector's 1-based convention.
func DecodeSparseVec(src []byte) (SparseVec, error) {
	if len(src) < 12 {
		return SparseVec{}, errors.Errorf("sparsevec: payload too short (%d bytes)", len(src))
	}
	dim := int32(binary.BigEndian.Uint32(src[0:4]))
	nnz := int(int32(binary.BigEndian.Uint32(src[4:8])))
	rest := src[12:]
	if len(rest) != nnz*4+nnz*4 {
		return SparseVec{}, errors.Errorf("sparsevec: expected %d bytes of indices+values, got %d", nnz*8, len(rest))
	}

	indices := make([]uint32, nnz)
	for i := 0; i < nnz; i++ {
		indices[i] = binary.BigEndian.Uint32(rest[i*4:i*4+4]) + 1
	}
	valOff := nnz * 4
	values := make([]float32, nnz)
	for i := 0; i < nnz; i++ {
		values[i] = math.Float32frombits(binary.BigEndian.Uint32(rest[valOff+i*4 : valOff+i*4+4]))
	}
	return SparseVec{Dim: dim, Indices: indices, Values: values}, nil
}

// float16ToFloat32 widens an IEEE-754 binary16 value to binary32,
// following the standard normalize-the-subnormal algorithm (as used by
// golang.org/x/image/math/f16).
func float16ToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h & 0x03ff)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		exp++
		for frac&0x0400 == 0 {
			frac <<= 1
			exp--
		}
		exp--
		frac &= 0x03ff
	case 0x1f:
		if frac == 0 {
			return math.Float32frombits(sign | 0x7f800000)
		}
		return math.Float32frombits(sign | 0x7fc00000)
	}

	return math.Float32frombits(sign | ((exp + (127 - 15)) << 23) | (frac << 13))
}
