package pgtypes

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// Range flag bits, straight off PostgreSQL's rangetypes.h.
const (
	rangeEmpty  = 0x01
	rangeLBInc  = 0x02
	rangeUBInc  = 0x04
	rangeLBInf  = 0x08
	rangeUBInf  = 0x10
	rangeLBNull = 0x20 // not used by PostgreSQL itself, kept for completeness
	rangeUBNull = 0x40
)

// RawRange is a decoded range value with its bounds still as raw wire
// bytes (or nil, for an infinite/absent bound); the planner decodes Lower
// and Upper with the range's subtype OID, which only it knows.
type RawRange struct {
	Empty          bool
	LowerInclusive bool
	UpperInclusive bool
	Lower          []byte
	Upper          []byte
}

// DecodeRange parses {flags:u8} followed by up to two optional
// {len:i32, bytes} bound payloads, in lower-then-upper order, present
// only when the corresponding flag doesn't mark the bound
// empty/infinite/null.
func DecodeRange(src []byte) (RawRange, error) {
	if len(src) < 1 {
		return RawRange{}, errors.New("range: empty payload")
	}
	flags := src[0]
	if flags&rangeEmpty != 0 {
		return RawRange{Empty: true}, nil
	}

	off := 1
	readBound := func(absent bool) ([]byte, error) {
		if absent {
			return nil, nil
		}
		if off+4 > len(src) {
			return nil, errors.New("range: truncated bound length")
		}
		l := int32(binary.BigEndian.Uint32(src[off : off+4]))
		off += 4
		if l < 0 {
			return nil, nil
		}
		if off+int(l) > len(src) {
			return nil, errors.New("range: truncated bound payload")
		}
		b := src[off : off+int(l)]
		off += int(l)
		return b, nil
	}

	lower, err := readBound(flags&(rangeLBInf|rangeLBNull) != 0)
	if err != nil {
		return RawRange{}, errors.Trace(err)
	}
	upper, err := readBound(flags&(rangeUBInf|rangeUBNull) != 0)
	if err != nil {
		return RawRange{}, errors.Trace(err)
	}

	return RawRange{
		LowerInclusive: flags&rangeLBInc != 0,
		UpperInclusive: flags&rangeUBInc != 0,
		Lower:          lower,
		Upper:          upper,
	}, nil
}
