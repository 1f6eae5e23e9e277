// Package store defines the key-value backends that cells and queues persist
// into. Backends hold the engine-native scalar kinds only: string, int64 and
// float64. Richer types (bool, double, decimal) are layered on top by the cell
// package's codecs.
package store

import "fmt"

// Backend is a durable string-keyed scalar store.
//
// Every call is synchronous; persistent implementations must have committed a
// mutation to their medium before Set or Delete returns. Backends do not
// interpret keys, they are opaque identifiers. Values passed to Set must be
// normalisable via Normalize.
type Backend interface {
	// Get returns the value stored under key and whether the key is present.
	Get(key string) (interface{}, bool)
	// Set stores value under key, overwriting any previous value.
	Set(key string, value interface{}) error
	// Has reports whether key is present.
	Has(key string) bool
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error
}

// Normalize coerces a scalar to one of the backend-native kinds. Integer
// widths collapse to int64 and float32 widens to float64. Any other type is
// rejected.
func Normalize(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("unsupported store value type %T", value)
	}
}
