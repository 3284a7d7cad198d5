package planner

import (
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pingcap/errors"

	"pg2parquet/internal/appender"
)

// simpleSpec describes how one "plain" PG type name (no further
// recursion needed) maps onto a Parquet primitive leaf.
type simpleSpec struct {
	pqType    parquet.Type
	converted schema.ConvertedType
	typeLen   int
	newLeaf   func(maxDL, maxRL appender.DL) appender.Appender
}

func asInt32(v any) (int32, error) {
	// pgx decodes int2 to int16 and int4 to int32; both land in the same
	// INT32 physical column.
	switch i := v.(type) {
	case int32:
		return i, nil
	case int16:
		return int32(i), nil
	default:
		return 0, errors.Errorf("expected int16/int32, got %T", v)
	}
}

func asInt64(v any) (int64, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, errors.Errorf("expected int64, got %T", v)
	}
	return i, nil
}

func asFloat32(v any) (float32, error) {
	f, ok := v.(float32)
	if !ok {
		return 0, errors.Errorf("expected float32, got %T", v)
	}
	return f, nil
}

func asFloat64(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("expected float64, got %T", v)
	}
	return f, nil
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func asText(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	default:
		return nil, errors.Errorf("expected text, got %T", v)
	}
}

// asInetText renders pgx's decoded inet/cidr value in PostgreSQL's own
// textual form. pgx hands back a
// netip.Prefix for both types; text-format fallbacks stay untouched.
func asInetText(v any) ([]byte, error) {
	switch t := v.(type) {
	case netip.Prefix:
		if t.Addr().Is4() && t.Bits() == 32 {
			return []byte(t.Addr().String()), nil
		}
		if t.Addr().Is6() && t.Bits() == 128 {
			return []byte(t.Addr().String()), nil
		}
		return []byte(t.String()), nil
	case netip.Addr:
		return []byte(t.String()), nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	default:
		return nil, errors.Errorf("expected netip.Prefix, got %T", v)
	}
}

// asBitsText renders bit/varbit as a 0/1 string.
func asBitsText(v any) ([]byte, error) {
	switch t := v.(type) {
	case pgtype.Bits:
		if !t.Valid {
			return nil, errors.New("bit: unexpected NULL inside non-null value")
		}
		var sb strings.Builder
		sb.Grow(int(t.Len))
		for i := int32(0); i < t.Len; i++ {
			if t.Bytes[i/8]&(1<<(7-uint(i%8))) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		return []byte(sb.String()), nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	default:
		return nil, errors.Errorf("expected pgtype.Bits, got %T", v)
	}
}

// asMacBytes normalizes pgx's decoded macaddr to its 6 raw bytes.
func asMacBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case net.HardwareAddr:
		if len(t) != 6 {
			return nil, errors.Errorf("macaddr: expected 6 bytes, got %d", len(t))
		}
		return t, nil
	case []byte:
		if len(t) != 6 {
			return nil, errors.Errorf("macaddr: expected 6 bytes, got %d", len(t))
		}
		return t, nil
	case string:
		hw, err := net.ParseMAC(t)
		if err != nil || len(hw) != 6 {
			return nil, errors.Errorf("macaddr: cannot parse %q", t)
		}
		return hw, nil
	default:
		return nil, errors.Errorf("expected net.HardwareAddr, got %T", v)
	}
}

// asMacText renders macaddr in the conventional colon-separated hex form.
func asMacText(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	b, err := asMacBytes(v)
	if err != nil {
		return nil, err
	}
	return []byte(net.HardwareAddr(b).String()), nil
}

// asTimestampMicros converts pgx's time.Time for timestamp/timestamptz
// into microseconds since the Unix epoch, Parquet's TIMESTAMP_MICROS
// physical representation.
func asTimestampMicros(v any) (int64, error) {
	t, ok := v.(time.Time)
	if !ok {
		return 0, errors.Errorf("expected time.Time, got %T", v)
	}
	return t.UnixMicro(), nil
}

// asDateDays converts pgx's time.Time for `date` into days since the
// Unix epoch, Parquet's DATE physical representation.
func asDateDays(v any) (int32, error) {
	t, ok := v.(time.Time)
	if !ok {
		return 0, errors.Errorf("expected time.Time, got %T", v)
	}
	days := t.UTC().Truncate(24 * time.Hour).Unix() / 86400
	return int32(days), nil
}

func asUUIDBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case [16]byte:
		b := make([]byte, 16)
		copy(b, t[:])
		return b, nil
	case []byte:
		if len(t) != 16 {
			return nil, errors.Errorf("uuid: expected 16 bytes, got %d", len(t))
		}
		return t, nil
	case string:
		// pgx's text-format fallback (e.g. a uuid reached through a
		// composite or array element decoded as text); parse it the way
		// rather than reject it.
		id, err := uuid.Parse(t)
		if err != nil {
			return nil, errors.Annotatef(err, "uuid: parsing %q", t)
		}
		return append([]byte(nil), id[:]...), nil
	default:
		return nil, errors.Errorf("expected [16]byte uuid, got %T", v)
	}
}

// simplePrimitives holds the direct-mapped type names; numeric, macaddr,
// interval, json/jsonb, money and the pgvector types are special-cased
// in planner.go instead of living in this table, since their Parquet
// shape depends on Settings or needs more than a single fixed leaf.
var simplePrimitives = map[string]simpleSpec{
	"bool": {
		pqType: parquet.Types.Boolean,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewBool(maxDL, maxRL, asBool)
		},
	},
	"int2": {
		pqType:    parquet.Types.Int32,
		converted: schema.ConvertedTypes.Int16,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewInt32(maxDL, maxRL, asInt32)
		},
	},
	"int4": {
		pqType:    parquet.Types.Int32,
		converted: schema.ConvertedTypes.Int32,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewInt32(maxDL, maxRL, asInt32)
		},
	},
	"int8": {
		pqType:    parquet.Types.Int64,
		converted: schema.ConvertedTypes.Int64,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewInt64(maxDL, maxRL, asInt64)
		},
	},
	"float4": {
		pqType: parquet.Types.Float,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewFloat32(maxDL, maxRL, asFloat32)
		},
	},
	"float8": {
		pqType: parquet.Types.Double,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewFloat64(maxDL, maxRL, asFloat64)
		},
	},
	"text": textLeaf(),
	"varchar": textLeaf(),
	"bpchar": textLeaf(),
	"name": textLeaf(),
	"citext": textLeaf(), // domain-like builtin extension type, transparent text
	"inet": {
		pqType:    parquet.Types.ByteArray,
		converted: schema.ConvertedTypes.UTF8,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewByteArray(maxDL, maxRL, asInetText)
		},
	},
	"cidr": {
		pqType:    parquet.Types.ByteArray,
		converted: schema.ConvertedTypes.UTF8,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewByteArray(maxDL, maxRL, asInetText)
		},
	},
	"bit": {
		pqType:    parquet.Types.ByteArray,
		converted: schema.ConvertedTypes.UTF8,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewByteArray(maxDL, maxRL, asBitsText)
		},
	},
	"varbit": {
		pqType:    parquet.Types.ByteArray,
		converted: schema.ConvertedTypes.UTF8,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewByteArray(maxDL, maxRL, asBitsText)
		},
	},
	"bytea": {
		pqType: parquet.Types.ByteArray,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewByteArray(maxDL, maxRL, asText)
		},
	},
	"date": {
		pqType:    parquet.Types.Int32,
		converted: schema.ConvertedTypes.Date,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewInt32(maxDL, maxRL, asDateDays)
		},
	},
	"timestamp": {
		pqType:    parquet.Types.Int64,
		converted: schema.ConvertedTypes.TimestampMicros,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewInt64(maxDL, maxRL, asTimestampMicros)
		},
	},
	"timestamptz": {
		pqType:    parquet.Types.Int64,
		converted: schema.ConvertedTypes.TimestampMicros,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewInt64(maxDL, maxRL, asTimestampMicros)
		},
	},
	"uuid": {
		pqType:  parquet.Types.FixedLenByteArray,
		typeLen: 16,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewFixedByteArray(maxDL, maxRL, 16, asUUIDBytes)
		},
	},
}

func textLeaf() simpleSpec {
	return simpleSpec{
		pqType:    parquet.Types.ByteArray,
		converted: schema.ConvertedTypes.UTF8,
		newLeaf: func(maxDL, maxRL appender.DL) appender.Appender {
			return appender.NewByteArray(maxDL, maxRL, asText)
		},
	}
}
