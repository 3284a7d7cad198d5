// Package pgconn owns everything touching the PostgreSQL connection:
// establishment, SSL mode, password resolution, and a pg_catalog
// snapshot the schema planner walks. Row decoding itself goes through
// pgx/v5's binary protocol plus internal/pgtypes' custom codecs,
// registered once per connection in RegisterCustomTypes.
package pgconn

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pingcap/errors"

	"pg2parquet/internal/config"
)

// ResolvePassword implements the password fallback chain:
// --password flag, then PGPASSWORD, then an interactive TTY prompt
// (never both prompts for a password that is already known).
func ResolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v, ok := os.LookupEnv("PGPASSWORD"); ok {
		return v, nil
	}
	return promptPassword()
}

// promptPassword reads a password from the controlling terminal without
// echoing it, the same masked-input convention every psql-alike CLI
// uses. When stdin is not a TTY (piped input, CI), it falls back to a
// plain line read so scripted invocations still work.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	if term, ok := readPasswordFromTTY(); ok {
		fmt.Fprintln(os.Stderr)
		return term, nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", errors.Annotate(err, "reading password from stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ResolveUser implements the `-U/--user` fallback: the flag,
// then PGUSER, then the dbname itself (PostgreSQL's own historical
// convention when no user is specified).
func ResolveUser(flagValue, dbname string) string {
	if flagValue != "" {
		return flagValue
	}
	if v, ok := os.LookupEnv("PGUSER"); ok && v != "" {
		return v
	}
	return dbname
}

// BuildConnString assembles a libpq keyword/value connection string
// from a resolved Connection, including SSL mode and root-cert paths
// (--ssl-root-cert is repeatable; giving it without --sslmode implies
// `require`).
func BuildConnString(c config.Connection) string {
	parts := []string{
		"host=" + quoteKV(c.Host),
		"user=" + quoteKV(c.User),
		"dbname=" + quoteKV(c.Dbname),
		fmt.Sprintf("port=%d", c.Port),
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteKV(c.Password))
	}

	sslmode := c.SSLMode
	if sslmode == "" && len(c.SSLRootCerts) > 0 {
		sslmode = config.SSLRequire
	}
	if sslmode != "" {
		parts = append(parts, "sslmode="+string(sslmode))
	}
	if len(c.SSLRootCerts) > 0 {
		// libpq's sslrootcert keyword only accepts a single path; when
		// --ssl-root-cert was repeated, the first one given wins.
		parts = append(parts, "sslrootcert="+quoteKV(c.SSLRootCerts[0]))
	}
	return strings.Join(parts, " ")
}

func quoteKV(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Connect dials PostgreSQL and registers every custom decoder
// internal/pgtypes provides, mirroring how pgx/v5's own
// pgxpool.NewWithConfig lets a caller hook AfterConnect to extend the
// type map per-connection.
func Connect(ctx context.Context, c config.Connection) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(c))
	if err != nil {
		return nil, errors.Annotate(err, "parsing connection string")
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return RegisterCustomTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Annotate(err, "connecting to postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Annotate(err, "pinging postgres")
	}
	return pool, nil
}
