// Package cell provides typed accessors over a store backend. A cell binds
// one logical key to a default value and a codec, and keeps a lazy in-memory
// cache of the last value it read or wrote.
package cell

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/timzifer/prefstore/store"
)

// ErrNotInitialized is returned when a cell is used before it was bound to a
// backend and key. Cells built through the package constructors can never
// trigger it; it guards the zero value.
var ErrNotInitialized = errors.New("cell: not bound to a backend and key")

// Cell is a single named, typed, persisted value with a default and a local
// cache. The cache is populated on the first read and kept coherent by Set
// and Delete on the same instance only: two cells bound to the same key can
// disagree once one of them mutates the key. Callers that address a key
// through multiple cells must construct a fresh instance per operation.
type Cell[T any] struct {
	backend store.Backend
	key     string
	def     T
	codec   Codec[T]

	cached bool
	value  T
}

// New constructs a cell bound to key with the given default and codec.
func New[T any](b store.Backend, key string, def T, codec Codec[T]) (*Cell[T], error) {
	c := &Cell[T]{}
	if err := c.Initialize(b, key, def, codec); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize (re)binds the cell. It validates the binding but does not touch
// the store; the cache is reset so the next read consults the backend.
func (c *Cell[T]) Initialize(b store.Backend, key string, def T, codec Codec[T]) error {
	if b == nil {
		return fmt.Errorf("cell %s: backend must not be nil", key)
	}
	if key == "" {
		return fmt.Errorf("cell key must not be empty")
	}
	if codec == nil {
		return fmt.Errorf("cell %s: codec must not be nil", key)
	}
	c.backend = b
	c.key = key
	c.def = def
	c.codec = codec
	c.cached = false
	var zero T
	c.value = zero
	return nil
}

func (c *Cell[T]) bound() bool {
	return c != nil && c.backend != nil && c.key != ""
}

// Key returns the key the cell is bound to.
func (c *Cell[T]) Key() string {
	if c == nil {
		return ""
	}
	return c.key
}

// Default returns the value reported while the key is unset.
func (c *Cell[T]) Default() T {
	var zero T
	if c == nil {
		return zero
	}
	return c.def
}

// Value returns the stored value, or the default when the key is unset. The
// result is cached; later reads on this instance do not consult the backend
// until Set or Delete invalidate the cache.
func (c *Cell[T]) Value() (T, error) {
	var zero T
	if !c.bound() {
		return zero, ErrNotInitialized
	}
	if c.cached {
		return c.value, nil
	}
	v, present, err := c.codec.Read(c.backend, c.key)
	if err != nil {
		return zero, fmt.Errorf("cell %s: %w", c.key, err)
	}
	if !present {
		v = c.def
	}
	c.value = v
	c.cached = true
	return v, nil
}

// Set writes value to the store and updates the cache.
func (c *Cell[T]) Set(value T) error {
	if !c.bound() {
		return ErrNotInitialized
	}
	if err := c.codec.Write(c.backend, c.key, value); err != nil {
		return fmt.Errorf("cell %s: %w", c.key, err)
	}
	c.value = value
	c.cached = true
	return nil
}

// IsSet reports whether the key is present in the store. It always consults
// the backend; presence is not cached.
func (c *Cell[T]) IsSet() (bool, error) {
	if !c.bound() {
		return false, ErrNotInitialized
	}
	return c.codec.Present(c.backend, c.key), nil
}

// Delete removes the key from the store and resets the cache to the default.
func (c *Cell[T]) Delete() error {
	if !c.bound() {
		return ErrNotInitialized
	}
	if err := c.codec.Clear(c.backend, c.key); err != nil {
		return fmt.Errorf("cell %s: %w", c.key, err)
	}
	c.value = c.def
	c.cached = true
	return nil
}

// NewString binds a string cell.
func NewString(b store.Backend, key, def string) (*Cell[string], error) {
	return New(b, key, def, StringCodec())
}

// NewInt binds an integer cell.
func NewInt(b store.Backend, key string, def int64) (*Cell[int64], error) {
	return New(b, key, def, IntCodec())
}

// NewFloat binds a float cell using the store's native float representation.
func NewFloat(b store.Backend, key string, def float64) (*Cell[float64], error) {
	return New(b, key, def, FloatCodec())
}

// NewBool binds a boolean cell encoded as 0/1.
func NewBool(b store.Backend, key string, def bool) (*Cell[bool], error) {
	return New(b, key, def, BoolCodec())
}

// NewDouble binds a bit-exact float64 cell stored as two 32-bit halves.
func NewDouble(b store.Backend, key string, def float64) (*Cell[float64], error) {
	return New(b, key, def, DoubleCodec())
}

// NewDecimal binds an arbitrary precision decimal cell.
func NewDecimal(b store.Backend, key string, def decimal.Decimal) (*Cell[decimal.Decimal], error) {
	return New(b, key, def, DecimalCodec())
}
