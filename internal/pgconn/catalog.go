package pgconn

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/pingcap/errors"
	"golang.org/x/sync/errgroup"

	"pg2parquet/internal/pgtypes"
	"pg2parquet/internal/planner"
)

// ExpandTable implements the `-t/--table` shorthand.
func ExpandTable(name string) string {
	return fmt.Sprintf("SELECT * FROM %s", quoteIdent(name))
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

// pgType is one row of pg_type, enough to classify a type into a
// planner.Kind without a second round trip for the common cases.
type pgType struct {
	oid        uint32
	name       string
	typtype    byte // b=base d=domain e=enum c=composite r=range
	category   byte // 'A' marks array types regardless of typtype
	elemOID    uint32
	baseOID    uint32 // domain's underlying type
	compRelOID uint32 // composite's backing pg_class oid
}

// catalogResolver walks pg_type/pg_enum/pg_range/pg_attribute to build a
// planner.Type tree for one column's OID, caching by OID since the same
// composite/enum/range/domain type is frequently reused across columns.
// Resolution for independent top-level columns is fanned out with
// errgroup; the shared cache is guarded by a mutex since multiple
// goroutines may resolve the same nested type concurrently.
type catalogResolver struct {
	conn *pgx.Conn

	mu    sync.Mutex
	cache map[uint32]*planner.Type

	regMu        sync.Mutex
	registeredAt map[uint32]bool
}

func newCatalogResolver(conn *pgx.Conn) *catalogResolver {
	return &catalogResolver{
		conn:         conn,
		cache:        make(map[uint32]*planner.Type),
		registeredAt: make(map[uint32]bool),
	}
}

// BuildColumns introspects query's result shape via a zero-row wrapper
// select, then resolves each column's full PG type tree, registering any
// enum/range/composite/array OIDs discovered along the way onto conn's
// type map.
func BuildColumns(ctx context.Context, conn *pgx.Conn, query string) ([]planner.Column, error) {
	introspect := fmt.Sprintf("SELECT * FROM (%s) AS pg2parquet_schema LIMIT 0", query)
	rows, err := conn.Query(ctx, introspect)
	if err != nil {
		return nil, errors.Annotate(err, "introspecting query result shape")
	}
	fds := rows.FieldDescriptions()
	rows.Close()

	resolver := newCatalogResolver(conn)
	cols := make([]planner.Column, len(fds))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, fd := range fds {
		i, fd := i, fd
		eg.Go(func() error {
			t, err := resolver.resolve(egCtx, fd.DataTypeOID)
			if err != nil {
				return errors.Annotatef(err, "column %s", fd.Name)
			}
			cols[i] = planner.Column{Name: fd.Name, Type: t, Index: i}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Trace(err)
	}
	return cols, nil
}

func (r *catalogResolver) resolve(ctx context.Context, oid uint32) (*planner.Type, error) {
	r.mu.Lock()
	if t, ok := r.cache[oid]; ok {
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	pt, err := r.fetchPgType(ctx, oid)
	if err != nil {
		return nil, errors.Trace(err)
	}

	var t *planner.Type
	switch {
	case pt.category == 'A':
		elem, err := r.resolve(ctx, pt.elemOID)
		if err != nil {
			return nil, errors.Annotatef(err, "array element of %s", pt.name)
		}
		t = &planner.Type{OID: oid, Name: pt.name, Kind: planner.KindArray, Elem: elem}
		r.registerArray(oid, pt.name)
	case pt.typtype == 'd':
		elem, err := r.resolve(ctx, pt.baseOID)
		if err != nil {
			return nil, errors.Annotatef(err, "domain base of %s", pt.name)
		}
		t = &planner.Type{OID: oid, Name: pt.name, Kind: planner.KindDomain, Elem: elem}
	case pt.typtype == 'e':
		labels, err := r.fetchEnumLabels(ctx, oid)
		if err != nil {
			return nil, errors.Trace(err)
		}
		t = &planner.Type{OID: oid, Name: pt.name, Kind: planner.KindEnum, EnumLabels: labels}
		r.registerEnum(oid, pt.name)
	case pt.typtype == 'r':
		subOID, err := r.fetchRangeSubtype(ctx, oid)
		if err != nil {
			return nil, errors.Trace(err)
		}
		elem, err := r.resolve(ctx, subOID)
		if err != nil {
			return nil, errors.Annotatef(err, "range subtype of %s", pt.name)
		}
		t = &planner.Type{OID: oid, Name: pt.name, Kind: planner.KindRange, Elem: elem}
		r.registerRange(oid, pt.name)
	case pt.typtype == 'c':
		fields, err := r.fetchCompositeFields(ctx, pt.compRelOID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		t = &planner.Type{OID: oid, Name: pt.name, Kind: planner.KindComposite, Fields: fields}
		r.registerComposite(oid, pt.name)
	default:
		t = &planner.Type{OID: oid, Name: pt.name, Kind: planner.KindSimple}
	}

	r.mu.Lock()
	r.cache[oid] = t
	r.mu.Unlock()
	return t, nil
}

func (r *catalogResolver) fetchPgType(ctx context.Context, oid uint32) (pgType, error) {
	const q = `
		select typname, typtype, typcategory, typelem, typbasetype,
		       coalesce(typrelid, 0)
		from pg_type where oid = $1`
	var pt pgType
	pt.oid = oid
	if err := r.conn.QueryRow(ctx, q, oid).Scan(&pt.name, &pt.typtype, &pt.category, &pt.elemOID, &pt.baseOID, &pt.compRelOID); err != nil {
		return pgType{}, errors.Annotatef(err, "pg_type lookup for oid %d", oid)
	}
	return pt, nil
}

func (r *catalogResolver) fetchEnumLabels(ctx context.Context, oid uint32) ([]string, error) {
	rows, err := r.conn.Query(ctx, `select enumlabel from pg_enum where enumtypid = $1 order by enumsortorder`, oid)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, errors.Trace(err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (r *catalogResolver) fetchRangeSubtype(ctx context.Context, oid uint32) (uint32, error) {
	var subOID uint32
	err := r.conn.QueryRow(ctx, `select rngsubtype from pg_range where rngtypid = $1`, oid).Scan(&subOID)
	if err != nil {
		return 0, errors.Annotatef(err, "pg_range lookup for oid %d", oid)
	}
	return subOID, nil
}

func (r *catalogResolver) fetchCompositeFields(ctx context.Context, relOID uint32) ([]planner.Field, error) {
	rows, err := r.conn.Query(ctx, `
		select attname, atttypid
		from pg_attribute
		where attrelid = $1 and attnum > 0 and not attisdropped
		order by attnum`, relOID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	type raw struct {
		name string
		oid  uint32
	}
	var attrs []raw
	for rows.Next() {
		var a raw
		if err := rows.Scan(&a.name, &a.oid); err != nil {
			return nil, errors.Trace(err)
		}
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	fields := make([]planner.Field, len(attrs))
	for i, a := range attrs {
		t, err := r.resolve(ctx, a.oid)
		if err != nil {
			return nil, errors.Annotatef(err, "field %s", a.name)
		}
		fields[i] = planner.Field{Name: a.name, Type: t}
	}
	return fields, nil
}

func (r *catalogResolver) registerEnum(oid uint32, name string) {
	if r.markRegistered(oid) {
		return
	}
	pgtypes.RegisterEnum(r.conn.TypeMap(), oid, name)
}

func (r *catalogResolver) registerRange(oid uint32, name string) {
	if r.markRegistered(oid) {
		return
	}
	pgtypes.RegisterRange(r.conn.TypeMap(), oid, name)
}

func (r *catalogResolver) registerComposite(oid uint32, name string) {
	if r.markRegistered(oid) {
		return
	}
	pgtypes.RegisterComposite(r.conn.TypeMap(), oid, name)
}

func (r *catalogResolver) registerArray(oid uint32, name string) {
	if r.markRegistered(oid) {
		return
	}
	// Registered even when pgx has its own codec for this array OID:
	// the planner needs the raw splitter's RawArray form for every array
	// column, both for multi-dimension flattening and the dims sidecars,
	// so pgx's auto-derived []any decoding is deliberately shadowed.
	pgtypes.RegisterArray(r.conn.TypeMap(), oid, name)
}

// markRegistered returns true if oid was already registered by a
// previous call, and records it as registered otherwise. Guards against
// two concurrent resolve() calls racing to register the same OID.
func (r *catalogResolver) markRegistered(oid uint32) bool {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	if r.registeredAt[oid] {
		return true
	}
	r.registeredAt[oid] = true
	return false
}
