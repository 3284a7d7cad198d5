// Package pgtypes decodes PostgreSQL's binary wire representation for the
// types pgx does not already understand on its own: enums, ranges,
// composites, intervals, money, multi-dimensional arrays, jsonb's
// version-prefixed text, and the pgvector extension's three vector
// kinds. The work splits in two: a small set of pure "raw splitters"
// that slice the wire bytes into a structured-but-still-binary shape,
// and a matching set of pgx/v5 pgtype.Codec wrappers that register those
// splitters for the OIDs the planner discovers while walking the
// catalog.
//
// A raw splitter never needs the catalog: composite and range payloads
// are handed back with their field/bound slices still as raw []byte,
// because the OID needed to decode a field or bound further is only known
// once the schema planner has walked pg_catalog for that particular
// column. The planner is the one place both pieces of information meet,
// so it owns the final byte->Go conversion for nested values (see
// internal/planner).
package pgtypes

import (
	"database/sql/driver"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pingcap/errors"
)

// wireCodec adapts a pure `[]byte -> any` decoder into a pgtype.Codec.
// Every concrete type in this package (enum, interval, money, jsonb,
// vector/halfvec/sparsevec) is binary-only and self-contained, so they
// all share this one implementation instead of repeating the six-method
// Codec interface.
type wireCodec struct {
	name   string
	decode func(src []byte) (any, error)
}

func newWireCodec(name string, decode func(src []byte) (any, error)) *wireCodec {
	return &wireCodec{name: name, decode: decode}
}

func (c *wireCodec) FormatSupported(format int16) bool {
	return format == pgtype.BinaryFormatCode
}

func (c *wireCodec) PreferredFormat() int16 { return pgtype.BinaryFormatCode }

// PlanEncode is never exercised: this tool only ever reads from
// PostgreSQL, it never writes these types back.
func (c *wireCodec) PlanEncode(m *pgtype.Map, oid uint32, format int16, value any) pgtype.EncodePlan {
	return nil
}

func (c *wireCodec) PlanScan(m *pgtype.Map, oid uint32, format int16, target any) pgtype.ScanPlan {
	if format != pgtype.BinaryFormatCode {
		return nil
	}
	if _, ok := target.(*any); !ok {
		return nil
	}
	return &wireScanPlan{codec: c}
}

func (c *wireCodec) DecodeDatabaseSQLValue(m *pgtype.Map, oid uint32, format int16, src []byte) (driver.Value, error) {
	v, err := c.decode(src)
	if err != nil {
		return nil, errors.Annotatef(err, "decode %s", c.name)
	}
	return v, nil
}

func (c *wireCodec) DecodeValue(m *pgtype.Map, oid uint32, format int16, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	v, err := c.decode(src)
	if err != nil {
		return nil, errors.Annotatef(err, "decode %s", c.name)
	}
	return v, nil
}

type wireScanPlan struct {
	codec *wireCodec
}

func (p *wireScanPlan) Scan(src []byte, target any) error {
	dst, ok := target.(*any)
	if !ok {
		return errors.Errorf("pgtypes: scan target for %s must be *any, got %T", p.codec.name, target)
	}
	if src == nil {
		*dst = nil
		return nil
	}
	v, err := p.codec.decode(src)
	if err != nil {
		return errors.Annotatef(err, "decode %s", p.codec.name)
	}
	*dst = v
	return nil
}

// RegisterEnum installs an enum codec under oid; PlanScan/DecodeValue both
// hand back the label as a string (the UTF-8 text pgx already receives for enums, since
// PostgreSQL represents enum values on the wire as their label string).
func RegisterEnum(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeEnum)})
}

// RegisterInterval installs the interval codec under oid (normally the
// built-in `interval` OID 1186, but domains over it get their own OID).
func RegisterInterval(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeIntervalAny)})
}

// RegisterMoney installs the money codec under oid (built-in OID 790).
func RegisterMoney(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeMoneyAny)})
}

// RegisterJSONB installs the jsonb codec, which strips the one-byte
// version prefix pgx's own json codec does not expect when we want the
// raw text handed straight to a BYTE_ARRAY/STRING appender.
func RegisterJSONB(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeJSONBAny)})
}

// RegisterJSON installs a passthrough codec for plain `json`, whose wire
// form is already bare UTF-8 text. pgx's own json codec unmarshals the
// document into Go maps, which this tool never wants: the bytes go
// straight into a BYTE_ARRAY leaf unparsed.
func RegisterJSON(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeJSONAny)})
}

// RegisterVector family installs the pgvector extension's three wire
// formats under their respective (extension-assigned, hence run-time)
// OIDs.
func RegisterVector(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeVectorAny)})
}

func RegisterHalfVec(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeHalfVecAny)})
}

func RegisterSparseVec(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeSparseVecAny)})
}

// RegisterRange installs the generic raw-range splitter for oid; the
// subtype's own OID is discovered by the planner from pg_range, not from
// this codec, since the wire payload only carries the bound bytes.
func RegisterRange(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeRangeAny)})
}

// RegisterComposite installs the generic raw-composite splitter for oid.
func RegisterComposite(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeCompositeAny)})
}

// RegisterArray installs the generic raw-array splitter for oid,
// shadowing pgx's own auto-derived array codec where one exists: the
// planner wants every array column in RawArray form, with its dims and
// lower bounds intact, rather than pgx's flattened []any decoding.
func RegisterArray(m *pgtype.Map, oid uint32, name string) {
	m.RegisterType(&pgtype.Type{Name: name, OID: oid, Codec: newWireCodec(name, decodeArrayAny)})
}

func decodeIntervalAny(src []byte) (any, error)  { return DecodeInterval(src) }
func decodeMoneyAny(src []byte) (any, error)     { return DecodeMoney(src), nil }
func decodeJSONBAny(src []byte) (any, error)     { return DecodeJSONB(src) }
func decodeJSONAny(src []byte) (any, error)      { return src, nil }
func decodeVectorAny(src []byte) (any, error)    { return DecodeVector(src) }
func decodeHalfVecAny(src []byte) (any, error)   { return DecodeHalfVec(src) }
func decodeSparseVecAny(src []byte) (any, error) { return DecodeSparseVec(src) }
func decodeEnum(src []byte) (any, error)         { return string(src), nil }
func decodeRangeAny(src []byte) (any, error)     { return DecodeRange(src) }
func decodeCompositeAny(src []byte) (any, error) { return DecodeComposite(src) }
func decodeArrayAny(src []byte) (any, error)     { return DecodeArray(src) }
