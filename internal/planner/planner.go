// Package planner implements the recursive PostgreSQL-type-tree ->
// Parquet-schema translation together with the matching appender tree,
// and the user-facing policy knobs (Settings) that steer ambiguous
// mappings (enum, interval, numeric, array, macaddr, pgvector halfvec).
package planner

import (
	"math"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pingcap/errors"

	"pg2parquet/internal/appender"
	"pg2parquet/internal/pgtypes"
)

// WireDecodeFunc turns one value's PostgreSQL binary wire bytes into the
// decoded Go value pgx would have produced for a top-level column of the
// same type. The planner applies it at every nested position (range
// bounds, composite fields, array elements), where the raw splitters in
// internal/pgtypes hand back undecoded []byte because only the planner
// knows the OID; internal/pgconn supplies the pgtype.Map-backed
// implementation.
type WireDecodeFunc func(oid uint32, src []byte) (any, error)

// Planner recursively maps a PG type tree onto a Parquet schema plus a
// tree of column appenders, consuming Settings for every policy-gated
// type.
type Planner struct {
	settings Settings
	decode   WireDecodeFunc
}

func New(settings Settings) *Planner {
	return &Planner{settings: settings}
}

// NewWithDecoder is New plus the nested-value wire decoder; every real
// export uses this constructor, while tests that feed already-decoded
// values may use New directly.
func NewWithDecoder(settings Settings, decode WireDecodeFunc) *Planner {
	return &Planner{settings: settings, decode: decode}
}

// nestedDecode builds the convert step bridging a raw-splitter payload
// into decoded Go values at one nested position. Values that are not
// wire bytes (already decoded upstream) pass through untouched.
func (p *Planner) nestedDecode(t *Type) func(v any) (any, error) {
	oid := wireOID(t)
	return func(v any) (any, error) {
		b, ok := v.([]byte)
		if !ok || p.decode == nil {
			return v, nil
		}
		return p.decode(oid, b)
	}
}

// wireOID resolves the OID whose binary format a value actually carries:
// a domain's wire representation is its base type's, and the catalog
// never registers a codec under the domain's own OID.
func wireOID(t *Type) uint32 {
	for t.Kind == KindDomain {
		t = t.Elem
	}
	return t.OID
}

// Plan builds the root schema group and row appender for an ordered list
// of selected SQL columns.
func (p *Planner) Plan(cols []Column) (*schema.GroupNode, *appender.RowField, error) {
	fields := make([]schema.Node, len(cols))
	leaves := make([]appender.Appender, len(cols))
	names := make([]string, len(cols))

	for i, col := range cols {
		node, leaf, err := p.planType(col.Name, col.Name, col.Type, 0, 0)
		if err != nil {
			return nil, nil, errors.Annotatef(err, "column %s", col.Name)
		}
		fields[i] = node
		leaves[i] = leaf
		names[i] = col.Name
	}

	root, err := schema.NewGroupNode("schema", parquet.Repetitions.Required, fields, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return root, appender.NewRowField(names, leaves), nil
}

// planType builds the schema node and appender for one type at a given
// point in the tree. maxDL/maxRL are the *ambient* levels accumulated by
// ancestors, before this node's own optionality (if any) is added; every
// branch below is responsible for returning an appender whose own MaxDL/
// MaxRL already include its own contribution.
func (p *Planner) planType(name, path string, t *Type, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	switch t.Kind {
	case KindDomain:
		// Transparent: no Parquet nesting, no extra DL/RL.
		return p.planType(name, path, t.Elem, maxDL, maxRL)
	case KindEnum:
		return p.planEnum(name, t, maxDL, maxRL)
	case KindArray:
		return p.planArray(name, path, t, maxDL, maxRL)
	case KindRange:
		return p.planRange(name, path, t, maxDL, maxRL)
	case KindComposite:
		return p.planComposite(name, path, t, maxDL, maxRL)
	case KindSimple:
		return p.planSimple(name, path, t, maxDL, maxRL)
	default:
		return nil, nil, errors.Errorf("%s: unknown PG type kind for %q", path, t.Name)
	}
}

func optionalPrimitive(name string, pqType parquet.Type, converted schema.ConvertedType, typeLen, precision, scale int) (schema.Node, error) {
	return schema.NewPrimitiveNodeConverted(name, parquet.Repetitions.Optional, pqType, converted, typeLen, precision, scale, -1)
}

func (p *Planner) planSimple(name, path string, t *Type, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	childDL := maxDL + 1

	switch t.Name {
	case "numeric":
		return p.planNumeric(name, path, childDL, maxRL)
	case "interval":
		return p.planInterval(name, childDL, maxRL)
	case "money":
		node, err := optionalPrimitive(name, parquet.Types.Int64, schema.ConvertedTypes.Decimal, 0, 18, 2)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return node, appender.NewInt64(childDL, maxRL, func(v any) (int64, error) {
			i, ok := v.(int64)
			if !ok {
				return 0, errors.Errorf("expected money int64, got %T", v)
			}
			return i, nil
		}), nil
	case "json", "jsonb":
		converted := schema.ConvertedTypes.UTF8
		if p.settings.JSONHandling == JSONAsMarkedJSON {
			converted = schema.ConvertedTypes.JSON
		}
		node, err := optionalPrimitive(name, parquet.Types.ByteArray, converted, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		convert := asText
		if t.Name == "jsonb" {
			convert = func(v any) ([]byte, error) {
				b, ok := v.([]byte)
				if !ok {
					return nil, errors.Errorf("expected decoded jsonb bytes, got %T", v)
				}
				return b, nil
			}
		}
		return node, appender.NewByteArray(childDL, maxRL, convert), nil
	case "macaddr":
		return p.planMacaddr(name, childDL, maxRL)
	case "vector":
		return p.planVector(name, childDL, maxRL)
	case "halfvec":
		return p.planHalfVec(name, childDL, maxRL)
	case "sparsevec":
		return p.planSparseVec(name, childDL, maxRL)
	}

	spec, ok := simplePrimitives[t.Name]
	if !ok {
		return nil, nil, errors.Errorf("%s: unsupported PG type %q", path, t.Name)
	}
	node, err := optionalPrimitive(name, spec.pqType, spec.converted, spec.typeLen, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return node, spec.newLeaf(childDL, maxRL), nil
}

func (p *Planner) planMacaddr(name string, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	switch p.settings.MacaddrHandling {
	case MacaddrAsByteArray:
		node, err := schema.NewPrimitiveNodeConverted(name, parquet.Repetitions.Optional, parquet.Types.FixedLenByteArray, schema.ConvertedTypes.None, 6, 0, 0, -1)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return node, appender.NewFixedByteArray(maxDL, maxRL, 6, asMacBytes), nil
	case MacaddrAsInt64:
		node, err := optionalPrimitive(name, parquet.Types.Int64, schema.ConvertedTypes.None, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return node, appender.NewInt64(maxDL, maxRL, func(v any) (int64, error) {
			b, err := asMacBytes(v)
			if err != nil {
				return 0, err
			}
			var n int64
			for _, c := range b {
				n = n<<8 | int64(c)
			}
			return n, nil
		}), nil
	default:
		node, err := optionalPrimitive(name, parquet.Types.ByteArray, schema.ConvertedTypes.UTF8, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return node, appender.NewByteArray(maxDL, maxRL, asMacText), nil
	}
}

func (p *Planner) planEnum(name string, t *Type, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	childDL := maxDL + 1

	if p.settings.EnumHandling == EnumAsInt {
		index := make(map[string]int32, len(t.EnumLabels))
		for i, label := range t.EnumLabels {
			index[label] = int32(i) + 1 // 1-based, matching pg_enum.enumsortorder
		}
		// The 1-based index tops out at len(EnumLabels), so the narrowest
		// unsigned width that holds the label count is enough.
		converted := schema.ConvertedTypes.Uint32
		switch {
		case len(t.EnumLabels) <= math.MaxUint8:
			converted = schema.ConvertedTypes.Uint8
		case len(t.EnumLabels) <= math.MaxUint16:
			converted = schema.ConvertedTypes.Uint16
		}
		node, err := optionalPrimitive(name, parquet.Types.Int32, converted, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return node, appender.NewInt32(childDL, maxRL, func(v any) (int32, error) {
			label, ok := v.(string)
			if !ok {
				return 0, errors.Errorf("expected enum label string, got %T", v)
			}
			idx, ok := index[label]
			if !ok {
				return 0, errors.Errorf("enum label %q not present at plan time (enum evolved during export)", label)
			}
			return idx, nil
		}), nil
	}

	converted := schema.ConvertedTypes.Enum
	if p.settings.EnumHandling == EnumAsPlainText {
		converted = schema.ConvertedTypes.UTF8
	}
	node, err := optionalPrimitive(name, parquet.Types.ByteArray, converted, 0, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return node, appender.NewByteArray(childDL, maxRL, asText), nil
}

func (p *Planner) planInterval(name string, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	if p.settings.IntervalHandling == IntervalAsStruct {
		months, err := optionalPrimitive("months", parquet.Types.Int32, schema.ConvertedTypes.Int32, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		days, err := optionalPrimitive("days", parquet.Types.Int32, schema.ConvertedTypes.Int32, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		micros, err := optionalPrimitive("microseconds", parquet.Types.Int64, schema.ConvertedTypes.Int64, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}

		group, err := schema.NewGroupNode(name, parquet.Repetitions.Optional, []schema.Node{months, days, micros}, -1)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}

		fieldDL := maxDL + 1
		monthsApp := appender.NewInt32(fieldDL, maxRL, func(v any) (int32, error) {
			iv, err := asInterval(v)
			return iv.Months, err
		})
		daysApp := appender.NewInt32(fieldDL, maxRL, func(v any) (int32, error) {
			iv, err := asInterval(v)
			return iv.Days, err
		})
		microsApp := appender.NewInt64(fieldDL, maxRL, func(v any) (int64, error) {
			iv, err := asInterval(v)
			return iv.Microseconds, err
		})

		children := []appender.Appender{monthsApp, daysApp, microsApp}
		project := []appender.FieldProjector{
			func(v any) (any, bool) { return v, true },
			func(v any) (any, bool) { return v, true },
			func(v any) (any, bool) { return v, true },
		}
		st := appender.NewStruct(maxDL, maxRL, []string{"months", "days", "microseconds"}, children, project)
		return group, st, nil
	}

	node, err := schema.NewPrimitiveNodeConverted(name, parquet.Repetitions.Optional, parquet.Types.FixedLenByteArray, schema.ConvertedTypes.Interval, 12, 0, 0, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return node, appender.NewFixedByteArray(maxDL, maxRL, 12, func(v any) ([]byte, error) {
		iv, err := asInterval(v)
		if err != nil {
			return nil, err
		}
		b := pgtypes.ParquetInterval(iv)
		return b[:], nil
	}), nil
}

func asInterval(v any) (pgtypes.Interval, error) {
	iv, ok := v.(pgtypes.Interval)
	if !ok {
		return pgtypes.Interval{}, errors.Errorf("expected pgtypes.Interval, got %T", v)
	}
	return iv, nil
}

func (p *Planner) planNumeric(name, path string, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	scale, precision := p.settings.DecimalScale, p.settings.DecimalPrecision

	switch p.settings.NumericHandling {
	case NumericAsDouble:
		node, err := optionalPrimitive(name, parquet.Types.Double, schema.ConvertedTypes.None, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return node, appender.NewFloat64(maxDL, maxRL, func(v any) (float64, error) {
			n, ok := v.(pgtype.Numeric)
			if !ok {
				return 0, errors.Errorf("expected pgtype.Numeric, got %T", v)
			}
			f, err := n.Float64Value()
			if err != nil {
				return 0, errors.Trace(err)
			}
			return f.Float64, nil
		}), nil
	case NumericAsFloat32:
		node, err := optionalPrimitive(name, parquet.Types.Float, schema.ConvertedTypes.None, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return node, appender.NewFloat32(maxDL, maxRL, func(v any) (float32, error) {
			n, ok := v.(pgtype.Numeric)
			if !ok {
				return 0, errors.Errorf("expected pgtype.Numeric, got %T", v)
			}
			f, err := n.Float64Value()
			if err != nil {
				return 0, errors.Trace(err)
			}
			return float32(f.Float64), nil
		}), nil
	case NumericAsString:
		node, err := optionalPrimitive(name, parquet.Types.ByteArray, schema.ConvertedTypes.UTF8, 0, 0, 0)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return node, appender.NewByteArray(maxDL, maxRL, func(v any) ([]byte, error) {
			n, ok := v.(pgtype.Numeric)
			if !ok {
				return nil, errors.Errorf("expected pgtype.Numeric, got %T", v)
			}
			if n.NaN {
				return []byte("NaN"), nil
			}
			s, err := n.Value()
			if err != nil {
				return nil, errors.Trace(err)
			}
			return []byte(s.(string)), nil
		}), nil
	}

	// NumericAsDecimal: precision picks the narrowest physical storage.
	pqType, byteLen := DeduceDecimalStorage(int(precision))
	node, err := optionalPrimitive(name, pqType, schema.ConvertedTypes.Decimal, byteLen, int(precision), int(scale))
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	switch pqType {
	case parquet.Types.Int32:
		return node, appender.NewInt32(maxDL, maxRL, func(v any) (int32, error) {
			n, ok := v.(pgtype.Numeric)
			if !ok {
				return 0, errors.Errorf("expected pgtype.Numeric, got %T", v)
			}
			i, ok := pgtypes.NumericToInt32(n, scale, precision)
			if !ok {
				OnDecimalOverflow(path)
				return 0, appender.ErrSoftNull
			}
			return i, nil
		}), nil
	case parquet.Types.Int64:
		return node, appender.NewInt64(maxDL, maxRL, func(v any) (int64, error) {
			n, ok := v.(pgtype.Numeric)
			if !ok {
				return 0, errors.Errorf("expected pgtype.Numeric, got %T", v)
			}
			i, ok := pgtypes.NumericToInt64(n, scale, precision)
			if !ok {
				OnDecimalOverflow(path)
				return 0, appender.ErrSoftNull
			}
			return i, nil
		}), nil
	default:
		return node, appender.NewFixedByteArray(maxDL, maxRL, byteLen, func(v any) ([]byte, error) {
			n, ok := v.(pgtype.Numeric)
			if !ok {
				return nil, errors.Errorf("expected pgtype.Numeric, got %T", v)
			}
			b, ok := pgtypes.NumericToFixedBytes(n, scale, precision, byteLen)
			if !ok {
				OnDecimalOverflow(path)
				return nil, appender.ErrSoftNull
			}
			return b, nil
		}), nil
	}
}

// OnDecimalOverflow is called once per value that doesn't fit its
// declared numeric precision under NumericAsDecimal. cmd/pg2parquet wires
// a WarnOnce logger in here at startup; tests leave it a no-op.
var OnDecimalOverflow = func(columnPath string) {}

// OnArrayFlatten is called when a multi-dimensional array is flattened
// without a dims sidecar to record its shape, with the column path and
// the observed per-dimension lengths. cmd/pg2parquet wires a warnOnce
// logger in here; tests leave it a no-op.
var OnArrayFlatten = func(columnPath string, dims []int32) {}

// planArray builds the canonical Parquet LIST group for a PG array
// type. When the array-handling policy asks for shape sidecars, the
// LIST gets nested one level deeper inside a "data/dims[/lower_bound]"
// struct instead of being published directly, so listOwnDL below is
// computed against whichever ambient level the LIST actually sits at.
func (p *Planner) planArray(name, path string, t *Type, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	if p.settings.ArrayHandling == ArrayPlain {
		listNode, arr, err := p.planFlatList(name, path, t.Elem, maxDL, maxRL)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return listNode, appender.NewConverting(arr, func(v any) (any, error) {
			raw, ok := v.(pgtypes.RawArray)
			if !ok {
				return nil, errors.Errorf("expected pgtypes.RawArray, got %T", v)
			}
			// Parquet cannot nest one repetition level per PG dimension,
			// so a multi-dimensional value is flattened; without the
			// dims sidecar the shape is lost, which deserves one warning
			// per column.
			if len(raw.Dims) > 1 {
				OnArrayFlatten(path, raw.Dims)
			}
			return rawElemsToSlice(raw), nil
		}), nil
	}

	// dims[/lower_bound] sidecar: a struct merging the flattened element
	// LIST with one (or two) int32 LIST sidecars recording the original
	// shape. The wrapper struct occupies the array column's own optional
	// level; every field nested inside it sits one level deeper.
	structDL := maxDL + 1

	dataNode, dataArr, err := p.planFlatList("data", path+".data", t.Elem, structDL, maxRL)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return p.planArrayWithSidecars(name, dataNode, dataArr, structDL, maxRL)
}

// planFlatList builds a plain (non-sidecar) LIST<elemType> group whose
// own optional level is maxDL+1, i.e. maxDL is the ambient level of
// whatever contains this list.
func (p *Planner) planFlatList(name, path string, elem *Type, maxDL, maxRL appender.DL) (schema.Node, *appender.Array, error) {
	listOwnDL := maxDL + 1
	elemDL := listOwnDL + 2 // +1 the LIST's own repeated "present" level, +1 allow_element_null
	elemRL := maxRL + 1

	elemNode, elemLeaf, err := p.planType("element", path+".element", elem, elemDL-1, elemRL)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	inner := appender.NewConverting(elemLeaf, p.nestedDecode(elem))

	listGroup, err := schema.NewGroupNode("list", parquet.Repetitions.Repeated, []schema.Node{elemNode}, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	outer, err := schema.NewGroupNodeConverted(name, parquet.Repetitions.Optional, []schema.Node{listGroup}, schema.ConvertedTypes.List, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	return outer, appender.NewArray(listOwnDL, maxRL, inner), nil
}

// planSidecarList builds a plain INT32-backed LIST sidecar at the same
// ambient level convention as planFlatList. The converted type differs
// per sidecar: dims is a list of unsigned lengths while lower_bound
// carries PostgreSQL's signed per-dimension lower bounds.
func planSidecarList(name string, converted schema.ConvertedType, maxDL, maxRL appender.DL) (schema.Node, *appender.Array, error) {
	listOwnDL := maxDL + 1
	elem, err := schema.NewPrimitiveNodeConverted("element", parquet.Repetitions.Optional, parquet.Types.Int32, converted, 0, 0, 0, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	list, err := schema.NewGroupNode("list", parquet.Repetitions.Repeated, []schema.Node{elem}, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	outer, err := schema.NewGroupNodeConverted(name, parquet.Repetitions.Optional, []schema.Node{list}, schema.ConvertedTypes.List, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	inner := appender.NewInt32(listOwnDL+2, maxRL+1, asInt32)
	return outer, appender.NewArray(listOwnDL, maxRL, inner), nil
}

// planArrayWithSidecars merges an already-built "data" LIST (dataNode,
// dataArr, both already at level maxDL, the wrapping struct's own level)
// with int32 LIST sidecars recording the array's original shape.
func (p *Planner) planArrayWithSidecars(name string, dataNode schema.Node, dataArr *appender.Array, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	dimsNode, dimsApp, err := planSidecarList("dims", schema.ConvertedTypes.Uint32, maxDL, maxRL)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	fields := []schema.Node{dataNode, dimsNode}
	children := []appender.Appender{appender.NewConverting(dataArr, pgArrayToElemSlice), appender.NewConverting(dimsApp, dimsToAnySlice)}
	names := []string{"data", "dims"}
	project := []appender.FieldProjector{
		func(v any) (any, bool) { return v, true },
		func(v any) (any, bool) { return v, true },
	}

	if p.settings.ArrayHandling == ArrayWithDimensionsAndLowerBound {
		lbNode, lbApp, err := planSidecarList("lower_bound", schema.ConvertedTypes.Int32, maxDL, maxRL)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		fields = append(fields, lbNode)
		children = append(children, appender.NewConverting(lbApp, lowerBoundsToAnySlice))
		names = append(names, "lower_bound")
		project = append(project, func(v any) (any, bool) { return v, true })
	}

	group, err := schema.NewGroupNode(name, parquet.Repetitions.Optional, fields, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	st := appender.NewStruct(maxDL, maxRL, names, children, project)
	return group, st, nil
}

func pgArrayToElemSlice(v any) (any, error) {
	raw, ok := v.(pgtypes.RawArray)
	if !ok {
		return nil, errors.Errorf("expected pgtypes.RawArray, got %T", v)
	}
	return rawElemsToSlice(raw), nil
}

func rawElemsToSlice(raw pgtypes.RawArray) []any {
	out := make([]any, len(raw.Elems))
	for i, e := range raw.Elems {
		if e.Bytes == nil {
			out[i] = nil
		} else {
			out[i] = e.Bytes
		}
	}
	return out
}

func dimsToAnySlice(v any) (any, error) {
	raw, ok := v.(pgtypes.RawArray)
	if !ok {
		return nil, errors.Errorf("expected pgtypes.RawArray, got %T", v)
	}
	out := make([]any, len(raw.Dims))
	for i, d := range raw.Dims {
		out[i] = d
	}
	return out, nil
}

func lowerBoundsToAnySlice(v any) (any, error) {
	raw, ok := v.(pgtypes.RawArray)
	if !ok {
		return nil, errors.Errorf("expected pgtypes.RawArray, got %T", v)
	}
	out := make([]any, len(raw.LowerBounds))
	for i, lb := range raw.LowerBounds {
		out[i] = lb
	}
	return out, nil
}

func (p *Planner) planRange(name, path string, t *Type, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	childDL := maxDL + 1

	boundNode, boundLeaf, err := p.planType("lower", path+".lower", t.Elem, childDL, maxRL)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	upperNode, upperLeaf, err := p.planType("upper", path+".upper", t.Elem, childDL, maxRL)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	lowerIncNode, err := optionalPrimitive("lower_inclusive", parquet.Types.Boolean, schema.ConvertedTypes.None, 0, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	upperIncNode, err := optionalPrimitive("upper_inclusive", parquet.Types.Boolean, schema.ConvertedTypes.None, 0, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	isEmptyNode, err := optionalPrimitive("is_empty", parquet.Types.Boolean, schema.ConvertedTypes.None, 0, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	group, err := schema.NewGroupNode(name, parquet.Repetitions.Optional, []schema.Node{boundNode, upperNode, lowerIncNode, upperIncNode, isEmptyNode}, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	flagDL := childDL + 1
	lowerIncApp := appender.NewBool(flagDL, maxRL, asBool)
	upperIncApp := appender.NewBool(flagDL, maxRL, asBool)
	isEmptyApp := appender.NewBool(flagDL, maxRL, asBool)

	lowerChild := appender.NewConverting(boundLeaf, p.nestedDecode(t.Elem))
	upperChild := appender.NewConverting(upperLeaf, p.nestedDecode(t.Elem))

	children := []appender.Appender{lowerChild, upperChild, lowerIncApp, upperIncApp, isEmptyApp}
	names := []string{"lower", "upper", "lower_inclusive", "upper_inclusive", "is_empty"}
	project := []appender.FieldProjector{
		func(v any) (any, bool) {
			r := v.(pgtypes.RawRange)
			if r.Empty || r.Lower == nil {
				return nil, false
			}
			return r.Lower, true
		},
		func(v any) (any, bool) {
			r := v.(pgtypes.RawRange)
			if r.Empty || r.Upper == nil {
				return nil, false
			}
			return r.Upper, true
		},
		func(v any) (any, bool) { return v.(pgtypes.RawRange).LowerInclusive, true },
		func(v any) (any, bool) { return v.(pgtypes.RawRange).UpperInclusive, true },
		func(v any) (any, bool) { return v.(pgtypes.RawRange).Empty, true },
	}

	return group, appender.NewStruct(childDL, maxRL, names, children, project), nil
}

func (p *Planner) planComposite(name, path string, t *Type, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	childDL := maxDL + 1

	fields := make([]schema.Node, len(t.Fields))
	children := make([]appender.Appender, len(t.Fields))
	names := make([]string, len(t.Fields))
	project := make([]appender.FieldProjector, len(t.Fields))

	for i, f := range t.Fields {
		node, leaf, err := p.planType(f.Name, path+"."+f.Name, f.Type, childDL, maxRL)
		if err != nil {
			return nil, nil, errors.Annotatef(err, "field %s", f.Name)
		}
		fields[i] = node
		children[i] = appender.NewConverting(leaf, p.nestedDecode(f.Type))
		names[i] = f.Name

		idx := i
		project[i] = func(v any) (any, bool) {
			rec := v.(pgtypes.RawComposite)
			// A wire payload whose num_cols is less than the declared
			// field count (a composite widened since this file's schema
			// was planned) leaves trailing fields NULL.
			if idx >= len(rec.Fields) {
				return nil, false
			}
			fv := rec.Fields[idx]
			if fv.Bytes == nil {
				return nil, false
			}
			return fv.Bytes, true
		}
	}

	group, err := schema.NewGroupNode(name, parquet.Repetitions.Optional, fields, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return group, appender.NewStruct(childDL, maxRL, names, children, project), nil
}

func (p *Planner) planVector(name string, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	elemNode, err := optionalPrimitive("element", parquet.Types.Float, schema.ConvertedTypes.None, 0, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	list, err := schema.NewGroupNode("list", parquet.Repetitions.Repeated, []schema.Node{elemNode}, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	outer, err := schema.NewGroupNodeConverted(name, parquet.Repetitions.Optional, []schema.Node{list}, schema.ConvertedTypes.List, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	elemLeaf := appender.NewFloat32(maxDL+2, maxRL+1, asFloat32)
	arr := appender.NewArray(maxDL, maxRL, elemLeaf)
	return outer, appender.NewConverting(arr, func(v any) (any, error) {
		vec, ok := v.(pgtypes.Vector)
		if !ok {
			return nil, errors.Errorf("expected pgtypes.Vector, got %T", v)
		}
		out := make([]any, len(vec.Elems))
		for i, e := range vec.Elems {
			out[i] = e
		}
		return out, nil
	}), nil
}

func (p *Planner) planHalfVec(name string, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	if p.settings.Float16Handling == Float16AsFloat16 {
		elemNode, err := schema.NewPrimitiveNodeConverted("element", parquet.Repetitions.Optional, parquet.Types.FixedLenByteArray, schema.ConvertedTypes.None, 2, 0, 0, -1)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		list, err := schema.NewGroupNode("list", parquet.Repetitions.Repeated, []schema.Node{elemNode}, -1)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		outer, err := schema.NewGroupNodeConverted(name, parquet.Repetitions.Optional, []schema.Node{list}, schema.ConvertedTypes.List, -1)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		elemLeaf := appender.NewFixedByteArray(maxDL+2, maxRL+1, 2, func(v any) ([]byte, error) {
			u, ok := v.(uint16)
			if !ok {
				return nil, errors.Errorf("expected uint16 half-float bits, got %T", v)
			}
			return []byte{byte(u >> 8), byte(u)}, nil
		})
		arr := appender.NewArray(maxDL, maxRL, elemLeaf)
		return outer, appender.NewConverting(arr, func(v any) (any, error) {
			hv, ok := v.(pgtypes.HalfVec)
			if !ok {
				return nil, errors.Errorf("expected pgtypes.HalfVec, got %T", v)
			}
			out := make([]any, len(hv.Raw))
			for i, r := range hv.Raw {
				out[i] = r
			}
			return out, nil
		}), nil
	}

	elemNode, err := optionalPrimitive("element", parquet.Types.Float, schema.ConvertedTypes.None, 0, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	list, err := schema.NewGroupNode("list", parquet.Repetitions.Repeated, []schema.Node{elemNode}, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	outer, err := schema.NewGroupNodeConverted(name, parquet.Repetitions.Optional, []schema.Node{list}, schema.ConvertedTypes.List, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	elemLeaf := appender.NewFloat32(maxDL+2, maxRL+1, asFloat32)
	arr := appender.NewArray(maxDL, maxRL, elemLeaf)
	return outer, appender.NewConverting(arr, func(v any) (any, error) {
		hv, ok := v.(pgtypes.HalfVec)
		if !ok {
			return nil, errors.Errorf("expected pgtypes.HalfVec, got %T", v)
		}
		out := make([]any, len(hv.Elems))
		for i, e := range hv.Elems {
			out[i] = e
		}
		return out, nil
	}), nil
}

func (p *Planner) planSparseVec(name string, maxDL, maxRL appender.DL) (schema.Node, appender.Appender, error) {
	keyNode, err := optionalPrimitive("key", parquet.Types.Int32, schema.ConvertedTypes.Uint32, 0, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	valueNode, err := optionalPrimitive("value", parquet.Types.Float, schema.ConvertedTypes.None, 0, 0, 0)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	kvGroup, err := schema.NewGroupNode("key_value", parquet.Repetitions.Repeated, []schema.Node{keyNode, valueNode}, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	outer, err := schema.NewGroupNodeConverted(name, parquet.Repetitions.Optional, []schema.Node{kvGroup}, schema.ConvertedTypes.Map, -1)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	pairDL, pairRL := maxDL+2, maxRL+1
	keyApp := appender.NewInt32(pairDL, pairRL, func(v any) (int32, error) {
		k, ok := v.(uint32)
		if !ok {
			return 0, errors.Errorf("expected uint32 sparsevec key, got %T", v)
		}
		return int32(k), nil
	})
	valApp := appender.NewFloat32(pairDL, pairRL, asFloat32)
	pair := appender.NewStruct(pairDL, pairRL, []string{"key", "value"}, []appender.Appender{keyApp, valApp}, []appender.FieldProjector{
		func(v any) (any, bool) { return v.([2]any)[0], true },
		func(v any) (any, bool) { return v.([2]any)[1], true },
	})

	arr := appender.NewArray(maxDL, maxRL, pair)
	return outer, appender.NewConverting(arr, func(v any) (any, error) {
		sv, ok := v.(pgtypes.SparseVec)
		if !ok {
			return nil, errors.Errorf("expected pgtypes.SparseVec, got %T", v)
		}
		out := make([]any, len(sv.Indices))
		for i := range sv.Indices {
			out[i] = [2]any{sv.Indices[i], sv.Values[i]}
		}
		return out, nil
	}), nil
}
