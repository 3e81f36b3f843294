package text

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUint32Decimal(t *testing.T) {
	v, err := ParseUint32("42")
	require.NoError(t, err)
	require.Equal(t, uint32(42), v)
}

func TestParseUint32HexWithSeparators(t *testing.T) {
	v, err := ParseUint32("0xFF_FF")
	require.NoError(t, err)
	require.Equal(t, uint32(0xffff), v)
}

func TestParseInt32Negative(t *testing.T) {
	v, err := ParseInt32("-1")
	require.NoError(t, err)
	require.Equal(t, int32(-1), v)
}

func TestParseInt32UnsignedRangeAsSigned(t *testing.T) {
	// 4294967295 is i32's unsigned max, representable as -1 in two's complement.
	v, err := ParseInt32("4294967295")
	require.NoError(t, err)
	require.Equal(t, int32(-1), v)
}

func TestParseUint32Malformed(t *testing.T) {
	_, err := ParseUint32("abc")
	require.Error(t, err)
}

func TestParseFloat64BitsRoundTrip(t *testing.T) {
	bits, err := ParseFloat64Bits("3.25")
	require.NoError(t, err)
	require.Equal(t, math.Float64bits(3.25), bits)
}

func TestParseFloat32BitsInf(t *testing.T) {
	bits, err := ParseFloat32Bits("inf")
	require.NoError(t, err)
	require.Equal(t, math.Float32bits(float32(math.Inf(1))), bits)
}

func TestParseFloat32BitsNegInf(t *testing.T) {
	bits, err := ParseFloat32Bits("-inf")
	require.NoError(t, err)
	require.Equal(t, math.Float32bits(float32(math.Inf(-1))), bits)
}

func TestParseFloat64BitsNan(t *testing.T) {
	bits, err := ParseFloat64Bits("nan")
	require.NoError(t, err)
	require.Equal(t, uint64(0x7ff8000000000000), bits)
}

func TestParseFloat64BitsNanPayload(t *testing.T) {
	bits, err := ParseFloat64Bits("nan:0x4000000000000")
	require.NoError(t, err)
	require.Equal(t, uint64(0x7ff4000000000000), bits)
}

func TestParseFloat32BitsNanZeroPayloadRejected(t *testing.T) {
	_, err := ParseFloat32Bits("nan:0x0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "significand must be non-zero")
}

func TestParseFloat64BitsNanZeroPayloadRejected(t *testing.T) {
	_, err := ParseFloat64Bits("nan:0x0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "significand must be non-zero")
}

func TestParseFloat64BitsHex(t *testing.T) {
	bits, err := ParseFloat64Bits("0x1.8p3")
	require.NoError(t, err)
	require.Equal(t, math.Float64bits(12.0), bits)
}

func TestLooksLikeNumber(t *testing.T) {
	require.True(t, LooksLikeNumber("123"))
	require.True(t, LooksLikeNumber("-1"))
	require.True(t, LooksLikeNumber("+0x10"))
	require.True(t, LooksLikeNumber("nan"))
	require.False(t, LooksLikeNumber("i32.add"))
	require.False(t, LooksLikeNumber("$foo"))
}
