package cell

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/prefstore/store"
)

func TestDoubleCodecRoundTripsBitExactly(t *testing.T) {
	samples := []float64{
		0.0,
		math.Copysign(0, -1),
		235534354352355.325235,
		math.NaN(),
		math.Inf(1),
		math.Inf(-1),
		math.SmallestNonzeroFloat64,
		math.MaxFloat64,
	}

	backend := store.NewMemory()
	codec := DoubleCodec()
	for _, sample := range samples {
		require.NoError(t, codec.Write(backend, "d", sample))

		got, present, err := codec.Read(backend, "d")
		require.NoError(t, err)
		require.True(t, present)
		require.Equal(t, math.Float64bits(sample), math.Float64bits(got),
			"bit pattern mismatch for %v", sample)
	}
}

func TestDoubleCodecUsesTwoIntegerHalves(t *testing.T) {
	backend := store.NewMemory()
	codec := DoubleCodec()
	value := 235534354352355.325235
	require.NoError(t, codec.Write(backend, "d", value))

	require.False(t, backend.Has("d"))
	rawHi, ok := backend.Get("d:hi")
	require.True(t, ok)
	rawLo, ok := backend.Get("d:lo")
	require.True(t, ok)

	bits := math.Float64bits(value)
	require.Equal(t, int64(uint32(bits>>32)), rawHi)
	require.Equal(t, int64(uint32(bits)), rawLo)
}

func TestDoubleCodecDetectsPartialEncoding(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.Set("d:hi", int64(1)))

	codec := DoubleCodec()
	require.False(t, codec.Present(backend, "d"))
	_, _, err := codec.Read(backend, "d")
	require.Error(t, err)
}

func TestDoubleCodecClearRemovesBothHalves(t *testing.T) {
	backend := store.NewMemory()
	codec := DoubleCodec()
	require.NoError(t, codec.Write(backend, "d", 1.5))
	require.NoError(t, codec.Clear(backend, "d"))
	require.False(t, backend.Has("d:hi"))
	require.False(t, backend.Has("d:lo"))
}

func TestBoolCodecEncodesAsInteger(t *testing.T) {
	backend := store.NewMemory()
	codec := BoolCodec()

	require.NoError(t, codec.Write(backend, "flag", true))
	raw, ok := backend.Get("flag")
	require.True(t, ok)
	require.Equal(t, int64(1), raw)

	v, present, err := codec.Read(backend, "flag")
	require.NoError(t, err)
	require.True(t, present)
	require.True(t, v)

	require.NoError(t, codec.Write(backend, "flag", false))
	raw, _ = backend.Get("flag")
	require.Equal(t, int64(0), raw)
}

func TestDecimalCodecRoundTrip(t *testing.T) {
	backend := store.NewMemory()
	codec := DecimalCodec()

	want, err := decimal.NewFromString("123.4567890123456789012345")
	require.NoError(t, err)
	require.NoError(t, codec.Write(backend, "price", want))

	raw, ok := backend.Get("price")
	require.True(t, ok)
	require.Equal(t, "123.4567890123456789012345", raw)

	got, present, err := codec.Read(backend, "price")
	require.NoError(t, err)
	require.True(t, present)
	require.True(t, want.Equal(got))
}

func TestDecimalCodecRejectsMalformedValue(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.Set("price", "not a decimal"))

	_, _, err := DecimalCodec().Read(backend, "price")
	require.Error(t, err)
}

func TestFloatCodecWidensStoredIntegers(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.Set("ratio", int64(3)))

	v, present, err := FloatCodec().Read(backend, "ratio")
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, 3.0, v)
}

func TestScalarCodecsReportAbsentKeys(t *testing.T) {
	backend := store.NewMemory()

	_, present, err := StringCodec().Read(backend, "missing")
	require.NoError(t, err)
	require.False(t, present)

	_, present, err = IntCodec().Read(backend, "missing")
	require.NoError(t, err)
	require.False(t, present)

	_, present, err = DoubleCodec().Read(backend, "missing")
	require.NoError(t, err)
	require.False(t, present)
}
