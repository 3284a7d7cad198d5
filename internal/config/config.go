// Package config wires the `export` subcommand's CLI flags into a
// validated Config, with an optional TOML file of defaults applied
// beneath whatever flags were given explicitly. Validation accumulates
// every problem into one error instead of failing on the first.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cznic/mathutil"

	"pg2parquet/internal/planner"
	"pg2parquet/internal/util"
)

// Compression enumerates the `--compression` flag's values.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
	CompressionGzip   Compression = "gzip"
	CompressionLzo    Compression = "lzo"
	CompressionBrotli Compression = "brotli"
	CompressionLz4    Compression = "lz4"
	CompressionZstd   Compression = "zstd"
)

// SSLMode enumerates the `--sslmode` flag's values.
type SSLMode string

const (
	SSLDisable SSLMode = "disable"
	SSLPrefer  SSLMode = "prefer"
	SSLRequire SSLMode = "require"
)

// TOMLDefaults is the shape of an optional `--config FILE`: every field
// a bare flag also accepts, read with BurntSushi/toml. Flags given on
// the command line always win over a value loaded here.
type TOMLDefaults struct {
	Compression      string `toml:"compression,omitempty"`
	CompressionLevel *int   `toml:"compression_level,omitempty"`
	Host             string `toml:"host,omitempty"`
	User             string `toml:"user,omitempty"`
	Dbname           string `toml:"dbname,omitempty"`
	Port             int    `toml:"port,omitempty"`
	SSLMode          string `toml:"sslmode,omitempty"`
	RowGroupBytes    string `toml:"row_group_bytes,omitempty"`
	PageSize         string `toml:"page_size,omitempty"`

	MacaddrHandling  string `toml:"macaddr_handling,omitempty"`
	JSONHandling     string `toml:"json_handling,omitempty"`
	EnumHandling     string `toml:"enum_handling,omitempty"`
	IntervalHandling string `toml:"interval_handling,omitempty"`
	NumericHandling  string `toml:"numeric_handling,omitempty"`
	DecimalScale     *int   `toml:"decimal_scale,omitempty"`
	DecimalPrecision *int   `toml:"decimal_precision,omitempty"`
	ArrayHandling    string `toml:"array_handling,omitempty"`
	Float16Handling  string `toml:"float16_handling,omitempty"`
}

// LoadTOMLDefaults decodes a --config FILE. A missing path is not an
// error (the flag is optional); toml.DecodeFile's own error surfaces
// for a malformed file.
func LoadTOMLDefaults(path string) (TOMLDefaults, error) {
	var d TOMLDefaults
	if path == "" {
		return d, nil
	}
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return TOMLDefaults{}, fmt.Errorf("reading --config %q: %w", path, err)
	}
	return d, nil
}

// Connection carries every connection-establishment flag;
// internal/pgconn is the collaborator that actually dials with these.
type Connection struct {
	Host         string
	User         string
	Dbname       string
	Port         int
	Password     string
	SSLMode      SSLMode
	SSLRootCerts []string
}

// Config is the fully resolved, validated set of knobs for one `export`
// run: source (query xor table), destination, compression, connection,
// and the schema planner's policy settings.
type Config struct {
	OutputFile       string
	Query            string
	Table            string
	Compression      Compression
	CompressionLevel *int
	Quiet            bool
	RowGroupBytes    int64
	PageSize         int64
	Conn             Connection
	Settings         planner.Settings
}

const (
	defaultRowGroupBytes = 500 << 20
	defaultPageSize      = 1 << 20 // arrow-go's own default; slow compressors use slowCompressorPage
	slowCompressorPage   = 128 << 10
)

// ResolvePageSize returns the configured page size when one was given.
// Otherwise it picks 128 KiB when a slow compressor is selected (zstd
// level > 2, gzip, brotli) and the 1 MiB default for every other codec,
// so slow compressors get smaller pages than the default.
func ResolvePageSize(configured int64, compression Compression, level *int) int64 {
	if configured > 0 {
		return configured
	}
	isSlow := compression == CompressionGzip || compression == CompressionBrotli ||
		(compression == CompressionZstd && level != nil && *level > 2)
	if isSlow {
		return slowCompressorPage
	}
	return defaultPageSize
}

// Validate accumulates every problem with cfg into one error instead of
// failing fast on the first flag seen, so a user fixing their command
// line sees everything wrong at once, before any DB connection is made.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.OutputFile == "" {
		errs = append(errs, "--output-file is required")
	}
	if (cfg.Query == "") == (cfg.Table == "") {
		errs = append(errs, "exactly one of --query or --table must be given")
	}

	switch cfg.Compression {
	case CompressionNone, CompressionSnappy, CompressionGzip, CompressionLzo, CompressionBrotli, CompressionLz4, CompressionZstd:
	default:
		errs = append(errs, fmt.Sprintf("unknown --compression %q", cfg.Compression))
	}

	if cfg.CompressionLevel != nil {
		switch cfg.Compression {
		case CompressionZstd, CompressionBrotli, CompressionGzip:
		default:
			errs = append(errs, fmt.Sprintf("--compression-level is not valid for --compression %q", cfg.Compression))
		}
	}

	switch cfg.Conn.SSLMode {
	case "", SSLDisable, SSLPrefer, SSLRequire:
	default:
		errs = append(errs, fmt.Sprintf("unknown --sslmode %q", cfg.Conn.SSLMode))
	}

	if cfg.Conn.Port <= 0 {
		errs = append(errs, "--port must be positive")
	}

	if cfg.Settings.DecimalPrecision < 1 || cfg.Settings.DecimalPrecision > 38 {
		errs = append(errs, "--decimal-precision must be between 1 and 38")
	}

	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("invalid arguments:\n")
	for _, e := range errs {
		sb.WriteString(" - ")
		sb.WriteString(e)
		sb.WriteString("\n")
	}
	return fmt.Errorf("%s", strings.TrimRight(sb.String(), "\n"))
}

// ClampCompressionLevel clamps a user-supplied --compression-level into
// the valid range for the chosen codec instead of silently accepting an
// out-of-range value or hard-failing.
func ClampCompressionLevel(level int, compression Compression) int {
	switch compression {
	case CompressionZstd:
		return mathutil.Clamp(level, 1, 22)
	case CompressionGzip:
		return mathutil.Clamp(level, 1, 9)
	case CompressionBrotli:
		return mathutil.Clamp(level, 0, 11)
	default:
		return level
	}
}

// ParseEnumHandling etc. translate the CLI's string enum values into
// planner.Settings fields.
func ParseEnumHandling(s string) (planner.EnumHandling, error) {
	switch s {
	case "", "text":
		return planner.EnumAsText, nil
	case "plain-text":
		return planner.EnumAsPlainText, nil
	case "int":
		return planner.EnumAsInt, nil
	default:
		return 0, fmt.Errorf("unknown --enum-handling %q", s)
	}
}

func ParseJSONHandling(s string) (planner.JSONHandling, error) {
	switch s {
	case "", "text":
		return planner.JSONAsText, nil
	case "text-marked-as-json":
		return planner.JSONAsMarkedJSON, nil
	default:
		return 0, fmt.Errorf("unknown --json-handling %q", s)
	}
}

func ParseIntervalHandling(s string) (planner.IntervalHandling, error) {
	switch s {
	case "", "interval":
		return planner.IntervalAsParquetInterval, nil
	case "struct":
		return planner.IntervalAsStruct, nil
	default:
		return 0, fmt.Errorf("unknown --interval-handling %q", s)
	}
}

func ParseNumericHandling(s string) (planner.NumericHandling, error) {
	switch s {
	case "", "double":
		return planner.NumericAsDouble, nil
	case "decimal":
		return planner.NumericAsDecimal, nil
	case "float32":
		return planner.NumericAsFloat32, nil
	case "string":
		return planner.NumericAsString, nil
	default:
		return 0, fmt.Errorf("unknown --numeric-handling %q", s)
	}
}

func ParseArrayHandling(s string) (planner.ArrayHandling, error) {
	switch s {
	case "", "plain":
		return planner.ArrayPlain, nil
	case "dimensions":
		return planner.ArrayWithDimensions, nil
	case "dimensions+lowerbound":
		return planner.ArrayWithDimensionsAndLowerBound, nil
	default:
		return 0, fmt.Errorf("unknown --array-handling %q", s)
	}
}

func ParseFloat16Handling(s string) (planner.Float16Handling, error) {
	switch s {
	case "", "float32":
		return planner.Float16AsFloat32, nil
	case "float16":
		return planner.Float16AsFloat16, nil
	default:
		return 0, fmt.Errorf("unknown --float16-handling %q", s)
	}
}

func ParseMacaddrHandling(s string) (planner.MacaddrHandling, error) {
	switch s {
	case "", "text":
		return planner.MacaddrAsText, nil
	case "byte-array":
		return planner.MacaddrAsByteArray, nil
	case "int64":
		return planner.MacaddrAsInt64, nil
	default:
		return 0, fmt.Errorf("unknown --macaddr-handling %q", s)
	}
}

func ParseSSLMode(s string) (SSLMode, error) {
	switch s {
	case "":
		return "", nil
	case string(SSLDisable), string(SSLPrefer), string(SSLRequire):
		return SSLMode(s), nil
	default:
		return "", fmt.Errorf("unknown --sslmode %q", s)
	}
}

func ParseCompression(s string) (Compression, error) {
	switch s {
	case string(CompressionNone), string(CompressionSnappy), string(CompressionGzip),
		string(CompressionLzo), string(CompressionBrotli), string(CompressionLz4), string(CompressionZstd):
		return Compression(s), nil
	default:
		return "", fmt.Errorf("unknown --compression %q", s)
	}
}

// mustParseSize is a thin wrapper so cmd/pg2parquet can treat a bad
// --row-group-bytes/--page-size the same as any other usage error.
func mustParseSize(s string, fallback int64) (int64, error) {
	return util.ParseSize(s, fallback)
}

// ResolveRowGroupBytes parses --row-group-bytes, defaulting to 500 MiB.
func ResolveRowGroupBytes(s string) (int64, error) {
	return mustParseSize(s, defaultRowGroupBytes)
}
