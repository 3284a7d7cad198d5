// Command pg2parquet exports a PostgreSQL query or table straight to a
// Parquet file: a flat `flag`-based CLI, an optional TOML file of
// defaults loaded with BurntSushi/toml, and a single top-level dispatch
// before the real work starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pingcap/errors"

	"pg2parquet/internal/config"
	"pg2parquet/internal/exporter"
	"pg2parquet/internal/pgconn"
	"pg2parquet/internal/planner"
	"pg2parquet/internal/util"
)

// stringList implements flag.Value for a repeatable flag.
type stringList struct{ values []string }

func (s *stringList) String() string   { return strings.Join(s.values, ",") }
func (s *stringList) Set(v string) error { s.values = append(s.values, v); return nil }

func main() {
	if len(os.Args) < 2 || os.Args[1] != "export" {
		fmt.Fprintln(os.Stderr, "usage: pg2parquet export [flags]")
		os.Exit(1)
	}

	if err := runExport(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "pg2parquet: %s\n", errors.ErrorStack(err))
		os.Exit(1)
	}
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)

	var (
		outputFile       string
		query            string
		table            string
		compression      string
		compressionLevel int
		hasLevel         bool
		quiet            bool
		rowGroupBytes    string
		pageSize         string
		configPath       string

		host     string
		user     string
		dbname   string
		port     int
		password string
		sslmode  string
		sslRoots stringList

		macaddrHandling  string
		jsonHandling     string
		enumHandling     string
		intervalHandling string
		numericHandling  string
		decimalScale     int
		decimalPrecision int
		arrayHandling    string
		float16Handling  string
	)

	for _, names := range [][2]string{{"o", "output-file"}} {
		fs.StringVar(&outputFile, names[0], "", "destination Parquet file")
		fs.StringVar(&outputFile, names[1], "", "destination Parquet file")
	}
	fs.StringVar(&query, "q", "", "SQL query to export")
	fs.StringVar(&query, "query", "", "SQL query to export")
	fs.StringVar(&table, "t", "", "table name to export (expands to SELECT * FROM <name>)")
	fs.StringVar(&table, "table", "", "table name to export (expands to SELECT * FROM <name>)")
	fs.StringVar(&compression, "compression", "zstd", "none|snappy|gzip|lzo|brotli|lz4|zstd")
	fs.Func("compression-level", "compression level, valid only for zstd|brotli|gzip", func(v string) error {
		n := 0
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return err
		}
		compressionLevel, hasLevel = n, true
		return nil
	})
	fs.BoolVar(&quiet, "quiet", false, "suppress schema echo and progress line")
	fs.StringVar(&rowGroupBytes, "row-group-bytes", "", "row group flush threshold, human size (default 500MiB)")
	fs.StringVar(&pageSize, "page-size", "", "Parquet data page size, human size")
	fs.StringVar(&configPath, "config", "", "TOML file of flag defaults")

	fs.StringVar(&host, "H", "", "PostgreSQL host")
	fs.StringVar(&host, "host", "", "PostgreSQL host")
	fs.StringVar(&user, "U", "", "PostgreSQL user (falls back to PGUSER, then dbname)")
	fs.StringVar(&user, "user", "", "PostgreSQL user (falls back to PGUSER, then dbname)")
	fs.StringVar(&dbname, "d", "", "PostgreSQL database name")
	fs.StringVar(&dbname, "dbname", "", "PostgreSQL database name")
	fs.IntVar(&port, "p", 5432, "PostgreSQL port")
	fs.IntVar(&port, "port", 5432, "PostgreSQL port")
	fs.StringVar(&password, "password", "", "PostgreSQL password (falls back to PGPASSWORD, then a TTY prompt)")
	fs.StringVar(&sslmode, "sslmode", "", "disable|prefer|require")
	fs.Var(&sslRoots, "ssl-root-cert", "root CA cert path, repeatable")

	fs.StringVar(&macaddrHandling, "macaddr-handling", "", "text|byte-array|int64")
	fs.StringVar(&jsonHandling, "json-handling", "", "text|text-marked-as-json")
	fs.StringVar(&enumHandling, "enum-handling", "", "text|plain-text|int")
	fs.StringVar(&intervalHandling, "interval-handling", "", "interval|struct")
	fs.StringVar(&numericHandling, "numeric-handling", "", "double|decimal|float32|string")
	fs.IntVar(&decimalScale, "decimal-scale", 18, "DECIMAL scale")
	fs.IntVar(&decimalPrecision, "decimal-precision", 38, "DECIMAL precision, 1-38")
	fs.StringVar(&arrayHandling, "array-handling", "", "plain|dimensions|dimensions+lowerbound")
	fs.StringVar(&float16Handling, "float16-handling", "", "float32|float16")

	if err := fs.Parse(args); err != nil {
		return errors.Trace(err)
	}

	touched := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { touched[f.Name] = true })

	if configPath != "" {
		defaults, err := config.LoadTOMLDefaults(configPath)
		if err != nil {
			return errors.Trace(err)
		}
		applyTOMLDefaults(defaults, touched, &compression, &compressionLevel, &hasLevel, &host, &user,
			&dbname, &port, &sslmode, &rowGroupBytes, &pageSize, &macaddrHandling, &jsonHandling,
			&enumHandling, &intervalHandling, &numericHandling, &decimalScale, &decimalPrecision,
			&arrayHandling, &float16Handling)
	}

	settings, err := resolveSettings(macaddrHandling, jsonHandling, enumHandling, intervalHandling,
		numericHandling, arrayHandling, float16Handling, decimalScale, decimalPrecision)
	if err != nil {
		return errors.Trace(err)
	}

	comp, err := config.ParseCompression(compression)
	if err != nil {
		return errors.Trace(err)
	}
	ssl, err := config.ParseSSLMode(sslmode)
	if err != nil {
		return errors.Trace(err)
	}

	rgBytes, err := config.ResolveRowGroupBytes(rowGroupBytes)
	if err != nil {
		return errors.Annotate(err, "parsing --row-group-bytes")
	}
	pgSize, err := util.ParseSize(pageSize, 0)
	if err != nil {
		return errors.Annotate(err, "parsing --page-size")
	}

	var level *int
	if hasLevel {
		level = &compressionLevel
	}

	cfg := config.Config{
		OutputFile:       outputFile,
		Query:            query,
		Table:            table,
		Compression:      comp,
		CompressionLevel: level,
		Quiet:            quiet,
		RowGroupBytes:    rgBytes,
		PageSize:         config.ResolvePageSize(pgSize, comp, level),
		Conn: config.Connection{
			Host:         host,
			User:         pgconn.ResolveUser(user, dbname),
			Dbname:       dbname,
			Port:         port,
			SSLMode:      ssl,
			SSLRootCerts: sslRoots.values,
		},
		Settings: settings,
	}
	if err := config.Validate(&cfg); err != nil {
		return errors.Trace(err)
	}

	// Only prompt for a password once the command line is known-good, so
	// a usage error never hides behind an interactive prompt.
	cfg.Conn.Password, err = pgconn.ResolvePassword(password)
	if err != nil {
		return errors.Trace(err)
	}

	return runWithConfig(context.Background(), cfg)
}

func runWithConfig(ctx context.Context, cfg config.Config) error {
	pool, err := pgconn.Connect(ctx, cfg.Conn)
	if err != nil {
		return errors.Trace(err)
	}
	defer pool.Close()

	acquired, err := pool.Acquire(ctx)
	if err != nil {
		return errors.Annotate(err, "acquiring connection")
	}
	defer acquired.Release()
	conn := acquired.Conn()

	sourceQuery := cfg.Query
	if sourceQuery == "" {
		sourceQuery = pgconn.ExpandTable(cfg.Table)
	}

	cols, err := pgconn.BuildColumns(ctx, conn, sourceQuery)
	if err != nil {
		return errors.Annotate(err, "planning schema")
	}

	if !cfg.Quiet {
		fmt.Fprint(os.Stdout, formatSchema(cols))
	}

	var progress *util.ProgressLogger
	if !cfg.Quiet {
		progress = util.NewProgressLogger("exported", time.Second)
	}
	warn := util.NewWarnOnce()
	planner.OnDecimalOverflow = func(columnPath string) {
		warn.Warn(columnPath, "column %s: numeric value overflowed its declared precision, storing NULL", columnPath)
	}
	// Separate from warn so the final summary's soft-NULL count doesn't
	// absorb flattening notices.
	flattenWarn := util.NewWarnOnce()
	planner.OnArrayFlatten = func(columnPath string, dims []int32) {
		flattenWarn.Warn(columnPath,
			"column %s: multi-dimensional array (shape %v) flattened to a one-dimensional list; use --array-handling dimensions to keep the shape",
			columnPath, dims)
	}

	driver, err := exporter.Plan(cfg.OutputFile, cols, pgconn.NewWireDecoder(conn.TypeMap()), cfg, progress, warn)
	if err != nil {
		return errors.Annotate(err, "opening output file")
	}

	rows, err := conn.Query(ctx, sourceQuery)
	if err != nil {
		return errors.Annotate(err, "running export query")
	}

	result, runErr := driver.Run(ctx, rows)
	if progress != nil {
		progress.Stop()
	}
	if closeErr := driver.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return errors.Trace(runErr)
	}

	fmt.Fprintf(os.Stdout, "%d rows, %d row groups, %d columns with soft NULL coercions\n", result.Rows, result.RowGroups, result.SoftNullCoerced)
	return nil
}

func resolveSettings(macaddrHandling, jsonHandling, enumHandling, intervalHandling, numericHandling, arrayHandling, float16Handling string, decimalScale, decimalPrecision int) (planner.Settings, error) {
	s := planner.DefaultSettings()

	var err error
	if s.MacaddrHandling, err = config.ParseMacaddrHandling(macaddrHandling); err != nil {
		return s, errors.Trace(err)
	}
	if s.JSONHandling, err = config.ParseJSONHandling(jsonHandling); err != nil {
		return s, errors.Trace(err)
	}
	if s.EnumHandling, err = config.ParseEnumHandling(enumHandling); err != nil {
		return s, errors.Trace(err)
	}
	if s.IntervalHandling, err = config.ParseIntervalHandling(intervalHandling); err != nil {
		return s, errors.Trace(err)
	}
	if s.NumericHandling, err = config.ParseNumericHandling(numericHandling); err != nil {
		return s, errors.Trace(err)
	}
	if s.ArrayHandling, err = config.ParseArrayHandling(arrayHandling); err != nil {
		return s, errors.Trace(err)
	}
	if s.Float16Handling, err = config.ParseFloat16Handling(float16Handling); err != nil {
		return s, errors.Trace(err)
	}
	s.DecimalScale = int32(decimalScale)
	s.DecimalPrecision = int32(decimalPrecision)
	return s, nil
}

// applyTOMLDefaults overlays a loaded TOML default file onto whichever
// flags the user did *not* explicitly pass; an explicit CLI flag always
// wins over a config file default.
func applyTOMLDefaults(d config.TOMLDefaults, touched map[string]bool,
	compression *string, compressionLevel *int, hasLevel *bool,
	host, user, dbname *string, port *int, sslmode *string,
	rowGroupBytes, pageSize *string,
	macaddrHandling, jsonHandling, enumHandling, intervalHandling, numericHandling *string,
	decimalScale, decimalPrecision *int,
	arrayHandling, float16Handling *string,
) {
	setStr := func(touchedName string, dst *string, v string) {
		if !touched[touchedName] && v != "" {
			*dst = v
		}
	}
	setStr("compression", compression, d.Compression)
	if !touched["compression-level"] && d.CompressionLevel != nil {
		*compressionLevel, *hasLevel = *d.CompressionLevel, true
	}
	setStr("host", host, d.Host)
	setStr("H", host, d.Host)
	setStr("user", user, d.User)
	setStr("U", user, d.User)
	setStr("dbname", dbname, d.Dbname)
	setStr("d", dbname, d.Dbname)
	if !touched["port"] && !touched["p"] && d.Port != 0 {
		*port = d.Port
	}
	setStr("sslmode", sslmode, d.SSLMode)
	setStr("row-group-bytes", rowGroupBytes, d.RowGroupBytes)
	setStr("page-size", pageSize, d.PageSize)
	setStr("macaddr-handling", macaddrHandling, d.MacaddrHandling)
	setStr("json-handling", jsonHandling, d.JSONHandling)
	setStr("enum-handling", enumHandling, d.EnumHandling)
	setStr("interval-handling", intervalHandling, d.IntervalHandling)
	setStr("numeric-handling", numericHandling, d.NumericHandling)
	if !touched["decimal-scale"] && d.DecimalScale != nil {
		*decimalScale = *d.DecimalScale
	}
	if !touched["decimal-precision"] && d.DecimalPrecision != nil {
		*decimalPrecision = *d.DecimalPrecision
	}
	setStr("array-handling", arrayHandling, d.ArrayHandling)
	setStr("float16-handling", float16Handling, d.Float16Handling)
}
