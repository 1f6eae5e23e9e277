package cell

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/timzifer/prefstore/store"
)

// Codec translates between Go values and the scalar layout a backend keeps
// for one logical key. Most kinds occupy exactly one store key; Double spreads
// its 64 bits across two keys. Codecs therefore operate on the backend
// directly instead of on single scalars.
//
// Codecs are stateless; the cache lives in the Cell that uses them.
type Codec[T any] interface {
	// Write persists value under key.
	Write(b store.Backend, key string, value T) error
	// Read returns the stored value and whether key is present. A present key
	// holding an incompatible representation is an error.
	Read(b store.Backend, key string) (T, bool, error)
	// Present reports whether key is set.
	Present(b store.Backend, key string) bool
	// Clear removes key.
	Clear(b store.Backend, key string) error
}

type stringCodec struct{}

// StringCodec stores values as native store strings.
func StringCodec() Codec[string] { return stringCodec{} }

func (stringCodec) Write(b store.Backend, key string, value string) error {
	return b.Set(key, value)
}

func (stringCodec) Read(b store.Backend, key string) (string, bool, error) {
	raw, ok := b.Get(key)
	if !ok {
		return "", false, nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("key %s holds %T, expected string", key, raw)
	}
	return v, true, nil
}

func (stringCodec) Present(b store.Backend, key string) bool { return b.Has(key) }

func (stringCodec) Clear(b store.Backend, key string) error { return b.Delete(key) }

type intCodec struct{}

// IntCodec stores values as native store integers.
func IntCodec() Codec[int64] { return intCodec{} }

func (intCodec) Write(b store.Backend, key string, value int64) error {
	return b.Set(key, value)
}

func (intCodec) Read(b store.Backend, key string) (int64, bool, error) {
	raw, ok := b.Get(key)
	if !ok {
		return 0, false, nil
	}
	v, ok := raw.(int64)
	if !ok {
		return 0, false, fmt.Errorf("key %s holds %T, expected int64", key, raw)
	}
	return v, true, nil
}

func (intCodec) Present(b store.Backend, key string) bool { return b.Has(key) }

func (intCodec) Clear(b store.Backend, key string) error { return b.Delete(key) }

type floatCodec struct{}

// FloatCodec stores values as native store floats. Integer values already in
// the store are widened on read; engine stores commonly collapse whole floats
// to integers.
func FloatCodec() Codec[float64] { return floatCodec{} }

func (floatCodec) Write(b store.Backend, key string, value float64) error {
	return b.Set(key, value)
}

func (floatCodec) Read(b store.Backend, key string) (float64, bool, error) {
	raw, ok := b.Get(key)
	if !ok {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case int64:
		return float64(v), true, nil
	default:
		return 0, false, fmt.Errorf("key %s holds %T, expected float64", key, raw)
	}
}

func (floatCodec) Present(b store.Backend, key string) bool { return b.Has(key) }

func (floatCodec) Clear(b store.Backend, key string) error { return b.Delete(key) }

type boolCodec struct{}

// BoolCodec stores booleans as the integers 0 and 1. The backing stores have
// no native boolean kind.
func BoolCodec() Codec[bool] { return boolCodec{} }

func (boolCodec) Write(b store.Backend, key string, value bool) error {
	encoded := int64(0)
	if value {
		encoded = 1
	}
	return b.Set(key, encoded)
}

func (boolCodec) Read(b store.Backend, key string) (bool, bool, error) {
	raw, ok := b.Get(key)
	if !ok {
		return false, false, nil
	}
	v, ok := raw.(int64)
	if !ok {
		return false, false, fmt.Errorf("key %s holds %T, expected int64-encoded bool", key, raw)
	}
	return v != 0, true, nil
}

func (boolCodec) Present(b store.Backend, key string) bool { return b.Has(key) }

func (boolCodec) Clear(b store.Backend, key string) error { return b.Delete(key) }

const (
	doubleHiSuffix = ":hi"
	doubleLoSuffix = ":lo"
)

type doubleCodec struct{}

// DoubleCodec stores a float64 bit-exactly as two 32-bit integer halves under
// `<key>:hi` and `<key>:lo`. Unlike FloatCodec this survives stores that
// truncate or reformat floating point values: NaN payloads, signed zero and
// subnormals round-trip unchanged.
func DoubleCodec() Codec[float64] { return doubleCodec{} }

func (doubleCodec) Write(b store.Backend, key string, value float64) error {
	bits := math.Float64bits(value)
	if err := b.Set(key+doubleHiSuffix, int64(uint32(bits>>32))); err != nil {
		return err
	}
	return b.Set(key+doubleLoSuffix, int64(uint32(bits)))
}

func (doubleCodec) Read(b store.Backend, key string) (float64, bool, error) {
	rawHi, okHi := b.Get(key + doubleHiSuffix)
	rawLo, okLo := b.Get(key + doubleLoSuffix)
	if !okHi || !okLo {
		if okHi != okLo {
			return 0, false, fmt.Errorf("key %s has a partial double encoding", key)
		}
		return 0, false, nil
	}
	hi, ok := rawHi.(int64)
	if !ok {
		return 0, false, fmt.Errorf("key %s%s holds %T, expected int64", key, doubleHiSuffix, rawHi)
	}
	lo, ok := rawLo.(int64)
	if !ok {
		return 0, false, fmt.Errorf("key %s%s holds %T, expected int64", key, doubleLoSuffix, rawLo)
	}
	bits := uint64(uint32(hi))<<32 | uint64(uint32(lo))
	return math.Float64frombits(bits), true, nil
}

func (doubleCodec) Present(b store.Backend, key string) bool {
	return b.Has(key+doubleHiSuffix) && b.Has(key+doubleLoSuffix)
}

func (doubleCodec) Clear(b store.Backend, key string) error {
	if err := b.Delete(key + doubleHiSuffix); err != nil {
		return err
	}
	return b.Delete(key + doubleLoSuffix)
}

type decimalCodec struct{}

// DecimalCodec stores arbitrary precision decimals in their canonical string
// form.
func DecimalCodec() Codec[decimal.Decimal] { return decimalCodec{} }

func (decimalCodec) Write(b store.Backend, key string, value decimal.Decimal) error {
	return b.Set(key, value.String())
}

func (decimalCodec) Read(b store.Backend, key string) (decimal.Decimal, bool, error) {
	raw, ok := b.Get(key)
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return decimal.Decimal{}, false, fmt.Errorf("key %s holds %T, expected string-encoded decimal", key, raw)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("key %s: parse decimal %q: %w", key, s, err)
	}
	return v, true, nil
}

func (decimalCodec) Present(b store.Backend, key string) bool { return b.Has(key) }

func (decimalCodec) Clear(b store.Backend, key string) error { return b.Delete(key) }
