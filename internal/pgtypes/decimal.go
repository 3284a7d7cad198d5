package pgtypes

import (
	"math"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pingcap/errors"
)

// RescaleNumeric converts a decoded `numeric` value (pgx already parses
// the wire format into unscaled digits plus a power-of-ten exponent) to
// the unscaled integer for a target `scale`, rounding half-to-even when
// the target scale is coarser than the source. It returns an error for
// NaN/Infinity, which PostgreSQL's numeric type allows but Parquet's
// DECIMAL logical type has no representation for.
func RescaleNumeric(n pgtype.Numeric, scale int32) (*big.Int, error) {
	if !n.Valid {
		return nil, errors.New("numeric: NULL has no unscaled value")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return nil, errors.New("numeric: NaN/Infinity has no Parquet DECIMAL representation")
	}

	shift := n.Exp + scale
	unscaled := new(big.Int).Set(n.Int)
	switch {
	case shift == 0:
		return unscaled, nil
	case shift > 0:
		pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(shift)), nil)
		return unscaled.Mul(unscaled, pow), nil
	default:
		pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-shift)), nil)
		return divRoundHalfEven(unscaled, pow), nil
	}
}

// divRoundHalfEven divides num by den (den > 0) rounding ties to even.
// PostgreSQL's own numeric scale reduction rounds ties away from zero
// instead, so a tie can land one unit apart from PostgreSQL's result.
func divRoundHalfEven(num, den *big.Int) *big.Int {
	quot, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	twiceRem := new(big.Int).Abs(new(big.Int).Lsh(rem, 1))

	cmp := twiceRem.Cmp(den)
	roundAway := cmp > 0 || (cmp == 0 && quot.Bit(0) == 1)
	if !roundAway {
		return quot
	}
	if num.Sign() < 0 {
		return quot.Sub(quot, big.NewInt(1))
	}
	return quot.Add(quot, big.NewInt(1))
}

// FitsDigits reports whether |v| has strictly fewer than 10^precision, the
// same totality check PostgreSQL applies when a numeric value would
// overflow its declared precision.
func FitsDigits(v *big.Int, precision int32) bool {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)
	return new(big.Int).Abs(v).Cmp(limit) < 0
}

// NumericToInt32 rescales and range-checks n for INT32-backed DECIMAL
// storage. ok is false for a soft overflow or an unrepresentable value;
// the caller is expected to emit a NULL plus a one-time warning, never
// a hard failure.
func NumericToInt32(n pgtype.Numeric, scale, precision int32) (int32, bool) {
	v, ok := rescaledWithinPrecision(n, scale, precision)
	if !ok || !v.IsInt64() {
		return 0, false
	}
	i64 := v.Int64()
	if i64 < math.MinInt32 || i64 > math.MaxInt32 {
		return 0, false
	}
	return int32(i64), true
}

// NumericToInt64 is NumericToInt32's INT64-backed counterpart.
func NumericToInt64(n pgtype.Numeric, scale, precision int32) (int64, bool) {
	v, ok := rescaledWithinPrecision(n, scale, precision)
	if !ok || !v.IsInt64() {
		return 0, false
	}
	return v.Int64(), true
}

// NumericToFixedBytes rescales n and encodes it as a two's-complement,
// sign-extended, big-endian buffer of exactly width bytes, the shape
// Parquet's FIXED_LEN_BYTE_ARRAY DECIMAL storage requires for precisions
// too wide for INT64.
func NumericToFixedBytes(n pgtype.Numeric, scale, precision int32, width int) ([]byte, bool) {
	v, ok := rescaledWithinPrecision(n, scale, precision)
	if !ok {
		return nil, false
	}
	return bigIntToFixedBytes(v, width), true
}

func rescaledWithinPrecision(n pgtype.Numeric, scale, precision int32) (*big.Int, bool) {
	v, err := RescaleNumeric(n, scale)
	if err != nil || !FitsDigits(v, precision) {
		return nil, false
	}
	return v, true
}

func bigIntToFixedBytes(v *big.Int, width int) []byte {
	out := make([]byte, width)
	if v.Sign() >= 0 {
		b := v.Bytes()
		copy(out[width-len(b):], b)
		return out
	}

	mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	twos := new(big.Int).Add(mod, v)
	b := twos.Bytes()
	if len(b) > width {
		b = b[len(b)-width:]
	}
	for i := 0; i < width-len(b); i++ {
		out[i] = 0xff
	}
	copy(out[width-len(b):], b)
	return out
}
