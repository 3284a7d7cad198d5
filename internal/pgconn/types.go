package pgconn

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pingcap/errors"

	"pg2parquet/internal/pgtypes"
)

// pgvectorTypeNames are the three pgvector extension types; their OIDs
// are assigned at `CREATE EXTENSION vector` time, so they can only be
// discovered by querying pg_type, unlike the built-in types below whose
// OIDs are fixed across every PostgreSQL installation.
var pgvectorTypeNames = []string{"vector", "halfvec", "sparsevec"}

// These constants are `pg_type.oid` for the handful of fixed built-ins this
// package registers a custom decoder for; these never move across a
// PostgreSQL major version the way extension-assigned OIDs do.
const (
	oidInterval = 1186
	oidMoney    = 790
	oidJSON     = 114
	oidJSONB    = 3802
)

// RegisterCustomTypes installs internal/pgtypes' decoders for the types
// pgx does not already understand on its own: interval,
// money, jsonb's version-prefixed text, and pgvector's three extension
// types when the extension is installed in the connected database.
// Enum, range, composite, and array custom OIDs are registered lazily
// per query by BuildColumns' catalog resolver, once it knows which
// columns are actually selected.
func RegisterCustomTypes(ctx context.Context, conn *pgx.Conn) error {
	m := conn.TypeMap()
	pgtypes.RegisterInterval(m, oidInterval, "interval")
	pgtypes.RegisterMoney(m, oidMoney, "money")
	pgtypes.RegisterJSON(m, oidJSON, "json")
	pgtypes.RegisterJSONB(m, oidJSONB, "jsonb")

	rows, err := conn.Query(ctx, `select typname, oid from pg_type where typname = any($1)`, pgvectorTypeNames)
	if err != nil {
		return errors.Annotate(err, "querying pgvector extension types")
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var oid uint32
		if err := rows.Scan(&name, &oid); err != nil {
			return errors.Trace(err)
		}
		switch name {
		case "vector":
			pgtypes.RegisterVector(m, oid, name)
		case "halfvec":
			pgtypes.RegisterHalfVec(m, oid, name)
		case "sparsevec":
			pgtypes.RegisterSparseVec(m, oid, name)
		}
	}
	// pgtype.Numeric is handled by pgx's own built-in codec; the decoded
	// pgtype.Numeric value is read directly by internal/planner's numeric
	// branch, so no custom registration is needed for it here.
	return rows.Err()
}
