package cell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/prefstore/store"
)

func TestCellReturnsDefaultWhileUnset(t *testing.T) {
	backend := store.NewMemory()
	c, err := NewString(backend, "player.name", "anonymous")
	require.NoError(t, err)

	set, err := c.IsSet()
	require.NoError(t, err)
	require.False(t, set)

	v, err := c.Value()
	require.NoError(t, err)
	require.Equal(t, "anonymous", v)
	require.Equal(t, "anonymous", c.Default())
}

func TestCellSetAndReadBack(t *testing.T) {
	backend := store.NewMemory()
	c, err := NewInt(backend, "player.score", 0)
	require.NoError(t, err)

	require.NoError(t, c.Set(42))

	set, err := c.IsSet()
	require.NoError(t, err)
	require.True(t, set)

	v, err := c.Value()
	require.NoError(t, err)
	require.Equal(t, int64(42), v)

	raw, ok := backend.Get("player.score")
	require.True(t, ok)
	require.Equal(t, int64(42), raw)
}

func TestCellCacheIsInstanceScoped(t *testing.T) {
	backend := store.NewMemory()
	first, err := NewString(backend, "shared", "fallback")
	require.NoError(t, err)

	// Prime the first instance's cache.
	v, err := first.Value()
	require.NoError(t, err)
	require.Equal(t, "fallback", v)

	// Mutate the key through a second instance; the first one keeps serving
	// its cached view. This is why item slots must be addressed through a
	// fresh cell per operation.
	second, err := NewString(backend, "shared", "fallback")
	require.NoError(t, err)
	require.NoError(t, second.Set("updated"))

	stale, err := first.Value()
	require.NoError(t, err)
	require.Equal(t, "fallback", stale)

	fresh, err := NewString(backend, "shared", "fallback")
	require.NoError(t, err)
	v, err = fresh.Value()
	require.NoError(t, err)
	require.Equal(t, "updated", v)
}

func TestCellDeleteResetsToDefault(t *testing.T) {
	backend := store.NewMemory()
	c, err := NewFloat(backend, "volume", 0.5)
	require.NoError(t, err)

	require.NoError(t, c.Set(0.9))
	require.NoError(t, c.Delete())

	require.False(t, backend.Has("volume"))

	v, err := c.Value()
	require.NoError(t, err)
	require.Equal(t, 0.5, v)

	set, err := c.IsSet()
	require.NoError(t, err)
	require.False(t, set)
}

func TestCellZeroValueIsNotInitialized(t *testing.T) {
	var c Cell[string]

	_, err := c.Value()
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, c.Set("x"), ErrNotInitialized)
	_, err = c.IsSet()
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, c.Delete(), ErrNotInitialized)
}

func TestCellInitializeValidatesBinding(t *testing.T) {
	backend := store.NewMemory()

	_, err := New(nil, "key", "", StringCodec())
	require.Error(t, err)

	_, err = New(backend, "", "", StringCodec())
	require.Error(t, err)

	_, err = New[string](backend, "key", "", nil)
	require.Error(t, err)
}

func TestCellInitializeRebindsAndResetsCache(t *testing.T) {
	backend := store.NewMemory()
	c, err := NewString(backend, "first", "d1")
	require.NoError(t, err)
	require.NoError(t, c.Set("value-1"))

	require.NoError(t, c.Initialize(backend, "second", "d2", StringCodec()))
	require.Equal(t, "second", c.Key())

	v, err := c.Value()
	require.NoError(t, err)
	require.Equal(t, "d2", v)
}

func TestCellReportsIncompatibleStoredKind(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.Set("key", "not a number"))

	c, err := NewInt(backend, "key", 0)
	require.NoError(t, err)

	_, err = c.Value()
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotInitialized))
}
