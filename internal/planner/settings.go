package planner

// EnumHandling selects how KindEnum columns are planned.
type EnumHandling int

const (
	EnumAsText EnumHandling = iota // BYTE_ARRAY, logical ENUM
	EnumAsPlainText                // BYTE_ARRAY, logical STRING
	EnumAsInt                      // INT32, 1-based pg_enum.enumsortorder position
)

// JSONHandling selects the logical type json/jsonb columns are tagged
// with; both always store raw text bytes.
type JSONHandling int

const (
	JSONAsText JSONHandling = iota
	JSONAsMarkedJSON
)

// IntervalHandling selects between Parquet's native fixed-width INTERVAL
// logical type and a fully-precise struct.
type IntervalHandling int

const (
	IntervalAsParquetInterval IntervalHandling = iota
	IntervalAsStruct
)

// NumericHandling selects how `numeric` columns are stored.
type NumericHandling int

const (
	NumericAsDouble NumericHandling = iota
	NumericAsDecimal
	NumericAsFloat32
	NumericAsString
)

// ArrayHandling controls whether multi-dimensional shape sidecars are
// attached next to a flattened LIST column.
type ArrayHandling int

const (
	ArrayPlain ArrayHandling = iota
	ArrayWithDimensions
	ArrayWithDimensionsAndLowerBound
)

// Float16Handling selects pgvector halfvec element storage.
type Float16Handling int

const (
	Float16AsFloat32 Float16Handling = iota
	Float16AsFloat16
)

// MacaddrHandling selects macaddr column storage.
type MacaddrHandling int

const (
	MacaddrAsText MacaddrHandling = iota
	MacaddrAsByteArray
	MacaddrAsInt64
)

// Settings is the user policy the schema planner consumes while walking
// the column list; it is built straight from CLI/TOML flags by
// internal/config.
type Settings struct {
	EnumHandling     EnumHandling
	JSONHandling     JSONHandling
	IntervalHandling IntervalHandling
	NumericHandling  NumericHandling
	DecimalScale     int32 // default 18
	DecimalPrecision int32 // default 38, range 1-38
	ArrayHandling    ArrayHandling
	Float16Handling  Float16Handling
	MacaddrHandling  MacaddrHandling
}

// DefaultSettings matches every policy flag's documented default.
func DefaultSettings() Settings {
	return Settings{
		EnumHandling:     EnumAsText,
		JSONHandling:     JSONAsText,
		IntervalHandling: IntervalAsParquetInterval,
		NumericHandling:  NumericAsDouble,
		DecimalScale:     18,
		DecimalPrecision: 38,
		ArrayHandling:    ArrayPlain,
		Float16Handling:  Float16AsFloat32,
		MacaddrHandling:  MacaddrAsText,
	}
}
