package pgtypes

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// Interval is PostgreSQL's wire representation of `interval`: a count of
// microseconds plus separate day and month components, since PostgreSQL
// deliberately never carries seconds over into days (a "1 month" interval
// and a "30 day" interval are not normalized against each other).
type Interval struct {
	Microseconds int64
	Days         int32
	Months       int32
}

// DecodeInterval parses the 16-byte {microseconds:i64 BE, days:i32 BE,
// months:i32 BE} wire payload.
func DecodeInterval(src []byte) (Interval, error) {
	if len(src) != 16 {
		return Interval{}, errors.Errorf("interval: expected 16 bytes, got %d", len(src))
	}
	return Interval{
		Microseconds: int64(binary.BigEndian.Uint64(src[0:8])),
		Days:         int32(binary.BigEndian.Uint32(src[8:12])),
		Months:       int32(binary.BigEndian.Uint32(src[12:16])),
	}, nil
}

// ParquetInterval packs an Interval into Parquet's fixed 12-byte INTERVAL
// representation: three little-endian u32 values (months, days,
// milliseconds). Parquet only carries millisecond resolution, so
// microseconds below 1ms are truncated, and whole days accumulated in
// the microsecond field carry over into the day count since Parquet has
// no slot past 24h of milliseconds.
func ParquetInterval(iv Interval) [12]byte {
	const msPerDay = 1000 * 60 * 60 * 24
	millisTotal := iv.Microseconds / 1000
	overflowDays := millisTotal / msPerDay
	millis := millisTotal % msPerDay

	var b [12]byte
	binary.LittleEndian.PutUint32(b[0:4], uint32(iv.Months))
	binary.LittleEndian.PutUint32(b[4:8], uint32(iv.Days+int32(overflowDays)))
	binary.LittleEndian.PutUint32(b[8:12], uint32(millis))
	return b
}
