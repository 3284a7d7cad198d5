package pgtypes

import "encoding/binary"

// DecodeMoney parses `money`'s wire representation: a plain signed int64
// counting the currency's smallest unit (cents for USD), with no scale
// information on the wire at all; the column's `lc_monetary` locale
// decides the scale, which this tool does not attempt to resolve, so
// money is planned as an INT64 DECIMAL(18,2) column regardless of the
// numeric-handling policy.
func DecodeMoney(src []byte) int64 {
	return int64(binary.BigEndian.Uint64(src))
}
