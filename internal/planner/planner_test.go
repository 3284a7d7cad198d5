package planner

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"testing"

	"github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
	"pg2parquet/internal/pgtypes"
)

// testWireDecoder decodes the two wire formats these tests feed through
// nested positions: int4 (OID 23, 4-byte BE) and text (OID 25, raw UTF-8).
func testWireDecoder(oid uint32, src []byte) (any, error) {
	switch oid {
	case 23:
		if len(src) != 4 {
			return nil, errors.Errorf("int4: expected 4 bytes, got %d", len(src))
		}
		return int32(binary.BigEndian.Uint32(src)), nil
	case 25:
		return string(src), nil
	default:
		return nil, errors.Errorf("no test decoder for oid %d", oid)
	}
}

func int4Wire(v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

// TestPlanFlatListElementDLAllowsNullAmongValues exercises a
// one-dimensional array containing a NULL element alongside real
// values. The element
// appender's maxDL must be two above the list's own optional level (one for
// the LIST group's own repeated "present" bit, one for the element's
// own optionality) or Array.AppendValue's AppendNull(childPath,
// a.maxDL+1) call trips the inner leaf's "dl must be below max_dl"
// invariant on every array with a NULL element, and silently
// mis-levels non-null elements even when no NULL is present.
func TestPlanFlatListElementDLAllowsNullAmongValues(t *testing.T) {
	p := New(DefaultSettings())
	elem := &Type{OID: 23, Name: "int4", Kind: KindSimple}

	_, arr, err := p.planFlatList("col", "col", elem, 0, 0)
	if err != nil {
		t.Fatalf("planFlatList: %v", err)
	}

	path := levels.NewRow(0)
	if _, err := arr.AppendValue(path, []any{int32(1), nil, int32(3)}); err != nil {
		t.Fatalf("appending [1, NULL, 3] to a freshly planned array: %v", err)
	}
}

// TestPlanIntListAndVectorElementDLMatchArrayConvention checks the
// sidecar and pgvector element builders use the same +2 convention as
// planFlatList, since all five call sites must agree on the definition
// level a repeated group's element leaf is planned at.
func TestPlanIntListAndVectorElementDLMatchArrayConvention(t *testing.T) {
	_, sidecar, err := planSidecarList("dims", schema.ConvertedTypes.Uint32, 0, 0)
	if err != nil {
		t.Fatalf("planSidecarList: %v", err)
	}
	path := levels.NewRow(0)
	if _, err := sidecar.AppendValue(path, []any{int32(2), nil}); err != nil {
		t.Fatalf("appending [2, NULL] to dims sidecar: %v", err)
	}

	p := New(DefaultSettings())
	_, vecApp, err := p.planVector("embedding", 0, 0)
	if err != nil {
		t.Fatalf("planVector: %v", err)
	}
	if _, err := vecApp.AppendValue(path, pgtypes.Vector{Elems: []float32{1.5, 2.5, 3.5}}); err != nil {
		t.Fatalf("appending a vector: %v", err)
	}
}

// TestPlanCompositeDecodesNestedWireBytes covers the bridge between the
// raw composite splitter (fields still as wire bytes) and typed leaf
// appenders: the planner must decode each field with its catalog OID
// before the leaf's convert function sees it.
func TestPlanCompositeDecodesNestedWireBytes(t *testing.T) {
	p := NewWithDecoder(DefaultSettings(), testWireDecoder)
	addr := &Type{
		OID:  70000,
		Name: "addr",
		Kind: KindComposite,
		Fields: []Field{
			{Name: "street", Type: &Type{OID: 25, Name: "text", Kind: KindSimple}},
			{Name: "zip", Type: &Type{OID: 23, Name: "int4", Kind: KindSimple}},
		},
	}

	_, app, err := p.planType("a", "a", addr, 0, 0)
	if err != nil {
		t.Fatalf("planType: %v", err)
	}

	path := levels.NewRow(0)
	rec := pgtypes.RawComposite{Fields: []pgtypes.RawCompositeField{
		{OID: 25, Bytes: []byte("Main")},
		{OID: 23, Bytes: int4Wire(12345)},
	}}
	if _, err := app.AppendValue(path, rec); err != nil {
		t.Fatalf("appending ('Main', 12345): %v", err)
	}

	// A NULL field inside a present record.
	withNull := pgtypes.RawComposite{Fields: []pgtypes.RawCompositeField{
		{OID: 25, Bytes: nil},
		{OID: 23, Bytes: int4Wire(0)},
	}}
	if _, err := app.AppendValue(levels.NewRow(1), withNull); err != nil {
		t.Fatalf("appending (NULL, 0): %v", err)
	}

	// A wire record narrower than the declared field list: trailing
	// declared fields become NULL instead of erroring out.
	short := pgtypes.RawComposite{Fields: []pgtypes.RawCompositeField{
		{OID: 25, Bytes: []byte("x")},
	}}
	if _, err := app.AppendValue(levels.NewRow(2), short); err != nil {
		t.Fatalf("appending narrow wire record: %v", err)
	}

	// And a NULL record broadcasts to every field.
	if err := app.AppendNull(levels.NewRow(3), 0); err != nil {
		t.Fatalf("appending NULL record: %v", err)
	}
}

// TestPlanRangeBoundedEmptyAndNull walks an int4range column's three
// shapes: a bounded range, 'empty', and SQL NULL.
func TestPlanRangeBoundedEmptyAndNull(t *testing.T) {
	p := NewWithDecoder(DefaultSettings(), testWireDecoder)
	r := &Type{
		OID:  3904,
		Name: "int4range",
		Kind: KindRange,
		Elem: &Type{OID: 23, Name: "int4", Kind: KindSimple},
	}

	_, app, err := p.planType("r", "r", r, 0, 0)
	if err != nil {
		t.Fatalf("planType: %v", err)
	}

	bounded := pgtypes.RawRange{
		LowerInclusive: true,
		Lower:          int4Wire(1),
		Upper:          int4Wire(5),
	}
	if _, err := app.AppendValue(levels.NewRow(0), bounded); err != nil {
		t.Fatalf("appending [1,5): %v", err)
	}

	if _, err := app.AppendValue(levels.NewRow(1), pgtypes.RawRange{Empty: true}); err != nil {
		t.Fatalf("appending empty range: %v", err)
	}

	if err := app.AppendNull(levels.NewRow(2), 0); err != nil {
		t.Fatalf("appending NULL range: %v", err)
	}
}

// TestPlanArrayDecodesRawElements runs a RawArray (the splitter's form
// for every array column) through a planned LIST column, covering the
// value, NULL-element, empty-array and NULL-array shapes.
func TestPlanArrayDecodesRawElements(t *testing.T) {
	p := NewWithDecoder(DefaultSettings(), testWireDecoder)
	arr := &Type{
		OID:  1007,
		Name: "_int4",
		Kind: KindArray,
		Elem: &Type{OID: 23, Name: "int4", Kind: KindSimple},
	}

	_, app, err := p.planType("xs", "xs", arr, 0, 0)
	if err != nil {
		t.Fatalf("planType: %v", err)
	}

	raw := pgtypes.RawArray{
		ElemOID: 23,
		Dims:    []int32{3},
		Elems: []pgtypes.RawArrayElem{
			{Bytes: int4Wire(1)}, {Bytes: nil}, {Bytes: int4Wire(3)},
		},
	}
	if _, err := app.AppendValue(levels.NewRow(0), raw); err != nil {
		t.Fatalf("appending [1, NULL, 3]: %v", err)
	}
	if _, err := app.AppendValue(levels.NewRow(1), pgtypes.RawArray{ElemOID: 23}); err != nil {
		t.Fatalf("appending empty array: %v", err)
	}
	if err := app.AppendNull(levels.NewRow(2), 0); err != nil {
		t.Fatalf("appending NULL array: %v", err)
	}
}

// TestPlanArrayFlattenReportsPathAndShape checks the flattening callback
// fires for a multi-dimensional value under the default plain policy,
// carrying the column path and observed shape.
func TestPlanArrayFlattenReportsPathAndShape(t *testing.T) {
	var gotPath string
	var gotDims []int32
	prev := OnArrayFlatten
	OnArrayFlatten = func(path string, dims []int32) { gotPath, gotDims = path, dims }
	defer func() { OnArrayFlatten = prev }()

	p := NewWithDecoder(DefaultSettings(), testWireDecoder)
	arr := &Type{
		OID:  1007,
		Name: "_int4",
		Kind: KindArray,
		Elem: &Type{OID: 23, Name: "int4", Kind: KindSimple},
	}
	_, app, err := p.planType("m", "m", arr, 0, 0)
	if err != nil {
		t.Fatalf("planType: %v", err)
	}

	raw := pgtypes.RawArray{
		ElemOID: 23,
		Dims:    []int32{2, 2},
		Elems: []pgtypes.RawArrayElem{
			{Bytes: int4Wire(1)}, {Bytes: int4Wire(2)}, {Bytes: int4Wire(3)}, {Bytes: int4Wire(4)},
		},
	}
	if _, err := app.AppendValue(levels.NewRow(0), raw); err != nil {
		t.Fatalf("appending 2x2 array: %v", err)
	}
	if gotPath != "m" || len(gotDims) != 2 {
		t.Fatalf("flatten callback: path=%q dims=%v", gotPath, gotDims)
	}
}

// TestPlanEnumAsIntUsesOneBasedIndex pins the enum-to-int open question
// to 1-based sort order, with an unknown label (enum evolved during the
// export) being fatal rather than silently mapped.
func TestPlanEnumAsIntUsesOneBasedIndex(t *testing.T) {
	s := DefaultSettings()
	s.EnumHandling = EnumAsInt
	p := New(s)
	e := &Type{OID: 90000, Name: "mood", Kind: KindEnum, EnumLabels: []string{"sad", "ok", "happy"}}

	_, app, err := p.planType("mood", "mood", e, 0, 0)
	if err != nil {
		t.Fatalf("planType: %v", err)
	}

	if _, err := app.AppendValue(levels.NewRow(0), "sad"); err != nil {
		t.Fatalf("known label should append: %v", err)
	}
	if _, err := app.AppendValue(levels.NewRow(1), "furious"); err == nil {
		t.Fatal("unknown label should be a fatal error")
	}
}

func TestAsInt32AcceptsInt16(t *testing.T) {
	if v, err := asInt32(int16(-7)); err != nil || v != -7 {
		t.Fatalf("int16: v=%d err=%v", v, err)
	}
	if v, err := asInt32(int32(9)); err != nil || v != 9 {
		t.Fatalf("int32: v=%d err=%v", v, err)
	}
	if _, err := asInt32("nope"); err == nil {
		t.Fatal("expected error for non-integer input")
	}
}

func TestAsInetTextFormatsHostsAndNetworks(t *testing.T) {
	host, err := asInetText(netip.MustParsePrefix("192.168.1.5/32"))
	if err != nil || string(host) != "192.168.1.5" {
		t.Fatalf("host address: %q err=%v", host, err)
	}
	network, err := asInetText(netip.MustParsePrefix("10.0.0.0/8"))
	if err != nil || string(network) != "10.0.0.0/8" {
		t.Fatalf("network: %q err=%v", network, err)
	}
}

func TestAsBitsTextRendersBitString(t *testing.T) {
	got, err := asBitsText(pgtype.Bits{Bytes: []byte{0b10110000}, Len: 5, Valid: true})
	if err != nil || string(got) != "10110" {
		t.Fatalf("want \"10110\", got %q err=%v", got, err)
	}
}

func TestAsMacBytesAndText(t *testing.T) {
	hw := net.HardwareAddr{0x08, 0x00, 0x2b, 0x01, 0x02, 0x03}

	b, err := asMacBytes(hw)
	if err != nil || len(b) != 6 {
		t.Fatalf("asMacBytes: %v err=%v", b, err)
	}
	s, err := asMacText(hw)
	if err != nil || string(s) != "08:00:2b:01:02:03" {
		t.Fatalf("asMacText: %q err=%v", s, err)
	}
}

// TestPlanEnumAsIntPicksNarrowestWidth checks the INT32 column's logical
// type shrinks with enum cardinality: UINT8 up to 255 labels, UINT16 up
// to 65535, UINT32 beyond.
func TestPlanEnumAsIntPicksNarrowestWidth(t *testing.T) {
	s := DefaultSettings()
	s.EnumHandling = EnumAsInt
	p := New(s)

	labels := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("label_%d", i)
		}
		return out
	}

	for _, tc := range []struct {
		count int
		want  schema.ConvertedType
	}{
		{3, schema.ConvertedTypes.Uint8},
		{255, schema.ConvertedTypes.Uint8},
		{256, schema.ConvertedTypes.Uint16},
		{65536, schema.ConvertedTypes.Uint32},
	} {
		e := &Type{OID: 90000, Name: "e", Kind: KindEnum, EnumLabels: labels(tc.count)}
		node, _, err := p.planType("e", "e", e, 0, 0)
		if err != nil {
			t.Fatalf("%d labels: %v", tc.count, err)
		}
		prim, ok := node.(*schema.PrimitiveNode)
		if !ok {
			t.Fatalf("%d labels: want primitive node, got %T", tc.count, node)
		}
		if got := prim.ConvertedType(); got != tc.want {
			t.Fatalf("%d labels: want %v, got %v", tc.count, tc.want, got)
		}
	}
}

// TestPlanArraySidecarLogicalTypes checks the shape sidecars carry their
// distinct logical types: dims holds unsigned lengths, lower_bound holds
// signed per-dimension bounds.
func TestPlanArraySidecarLogicalTypes(t *testing.T) {
	s := DefaultSettings()
	s.ArrayHandling = ArrayWithDimensionsAndLowerBound
	p := New(s)
	arr := &Type{
		OID:  1007,
		Name: "_int4",
		Kind: KindArray,
		Elem: &Type{OID: 23, Name: "int4", Kind: KindSimple},
	}

	node, _, err := p.planType("xs", "xs", arr, 0, 0)
	if err != nil {
		t.Fatalf("planType: %v", err)
	}
	wrapper, ok := node.(*schema.GroupNode)
	if !ok {
		t.Fatalf("want wrapper group, got %T", node)
	}

	listElemConverted := func(list schema.Node) schema.ConvertedType {
		outer, ok := list.(*schema.GroupNode)
		if !ok {
			t.Fatalf("sidecar %s is not a group", list.Name())
		}
		repeated := outer.Field(0).(*schema.GroupNode)
		return repeated.Field(0).(*schema.PrimitiveNode).ConvertedType()
	}

	for _, tc := range []struct {
		index int
		name  string
		want  schema.ConvertedType
	}{
		{1, "dims", schema.ConvertedTypes.Uint32},
		{2, "lower_bound", schema.ConvertedTypes.Int32},
	} {
		field := wrapper.Field(tc.index)
		if field.Name() != tc.name {
			t.Fatalf("field %d: want %q, got %q", tc.index, tc.name, field.Name())
		}
		if got := listElemConverted(field); got != tc.want {
			t.Fatalf("%s element: want %v, got %v", tc.name, tc.want, got)
		}
	}
}
