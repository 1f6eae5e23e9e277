// Package queue implements a bounded FIFO queue whose entire state lives in a
// store backend: two integer cursor cells plus one item cell per occupied
// slot, all under a shared key prefix. The queue survives process restarts;
// rebuilding it over the same backend and prefix resumes where the previous
// instance left off.
//
// The two cursors alone cannot distinguish a full queue from an empty one, so
// the insert cursor takes the sentinel value -1 while every slot is occupied.
// A dequeue leaving the full state restores the insert cursor to the slot it
// just vacated.
//
// Cursor and item writes are independent store operations with no transaction
// spanning them, and the queue is not safe for concurrent use. Callers must
// serialise all access to a given prefix themselves.
package queue

import (
	"errors"
	"fmt"

	"github.com/timzifer/prefstore/cell"
	"github.com/timzifer/prefstore/store"
	"github.com/timzifer/prefstore/telemetry"
)

var (
	// ErrQueueFull is returned by Enqueue when every slot is occupied.
	ErrQueueFull = errors.New("queue: queue is full")
	// ErrQueueEmpty is returned by Dequeue when no element is stored.
	ErrQueueEmpty = errors.New("queue: queue is empty")
)

// full is the insert cursor sentinel marking "no insertion slot available".
const full = -1

const (
	insertSuffix = ":insertIndex"
	fetchSuffix  = ":fetchIndex"
)

// Queue is a fixed-capacity persisted circular FIFO.
type Queue[T any] struct {
	backend store.Backend
	prefix  string
	length  int
	codec   cell.Codec[T]

	// Cursor cells are owned exclusively by this queue, so the long-lived
	// instances with their caches are safe. Item cells are constructed fresh
	// per operation instead; see cell.Cell's cache contract.
	insert *cell.Cell[int64]
	fetch  *cell.Cell[int64]

	cfg settings
}

// New binds a queue of the given capacity under prefix. Cursor cells default
// to 0 when unset, which makes a freshly bound prefix an empty queue and a
// previously used prefix resume its persisted state. No item cell is touched
// at construction time.
func New[T any](backend store.Backend, prefix string, length int, codec cell.Codec[T], opts ...Option) (*Queue[T], error) {
	if backend == nil {
		return nil, fmt.Errorf("queue %s: backend must not be nil", prefix)
	}
	if prefix == "" {
		return nil, fmt.Errorf("queue prefix must not be empty")
	}
	if length <= 0 {
		return nil, fmt.Errorf("queue %s: length must be positive, got %d", prefix, length)
	}
	if codec == nil {
		return nil, fmt.Errorf("queue %s: codec must not be nil", prefix)
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("queue %s: %w", prefix, err)
		}
	}

	insert, err := cell.NewInt(backend, prefix+insertSuffix, 0)
	if err != nil {
		return nil, fmt.Errorf("queue %s: %w", prefix, err)
	}
	fetch, err := cell.NewInt(backend, prefix+fetchSuffix, 0)
	if err != nil {
		return nil, fmt.Errorf("queue %s: %w", prefix, err)
	}

	q := &Queue[T]{
		backend: backend,
		prefix:  prefix,
		length:  length,
		codec:   codec,
		insert:  insert,
		fetch:   fetch,
		cfg:     cfg,
	}

	// Prime the cursor caches so the persisted state is validated once and
	// later reads cannot fail.
	ins, fet, err := q.loadCursors()
	if err != nil {
		return nil, err
	}
	if err := q.validateCursors(ins, fet); err != nil {
		return nil, err
	}
	return q, nil
}

// Prefix returns the key namespace root of the queue.
func (q *Queue[T]) Prefix() string {
	return q.prefix
}

// Length returns the fixed capacity.
func (q *Queue[T]) Length() int {
	return q.length
}

// Count returns the number of stored elements, in [0, Length]. It is derived
// from the two cursors and never stored independently.
func (q *Queue[T]) Count() int {
	ins, fet := q.cursors()
	switch {
	case ins == full:
		return q.length
	case ins >= fet:
		return int(ins - fet)
	default:
		// Insert cursor wrapped around behind the fetch cursor.
		return q.length - int(fet) + int(ins)
	}
}

// Enqueue appends item to the queue. It fails with ErrQueueFull, mutating
// nothing, when no slot is free.
func (q *Queue[T]) Enqueue(item T) error {
	ins, fet := q.cursors()
	if ins == full {
		q.cfg.collector.IncRejected(q.prefix, telemetry.ReasonFull)
		return ErrQueueFull
	}

	slot, err := q.itemCell(ins)
	if err != nil {
		return err
	}
	if err := slot.Set(item); err != nil {
		return fmt.Errorf("queue %s: write slot %d: %w", q.prefix, ins, err)
	}

	next := (ins + 1) % int64(q.length)
	if err := q.insert.Set(next); err != nil {
		return fmt.Errorf("queue %s: advance insert cursor: %w", q.prefix, err)
	}
	if next == fet {
		// The advanced cursor meeting the fetch cursor means every slot is
		// occupied now; without the sentinel this state would be
		// indistinguishable from empty.
		if err := q.insert.Set(full); err != nil {
			return fmt.Errorf("queue %s: mark full: %w", q.prefix, err)
		}
	}

	q.cfg.collector.IncEnqueued(q.prefix)
	q.cfg.collector.SetQueueDepth(q.prefix, q.Count())
	q.cfg.logger.Debug().Str("queue", q.prefix).Int64("slot", ins).Int("count", q.Count()).Msg("enqueued")
	return nil
}

// Dequeue removes and returns the oldest element. It fails with ErrQueueEmpty
// when no element is stored.
func (q *Queue[T]) Dequeue() (T, error) {
	var zero T
	ins, fet := q.cursors()
	// The sentinel is never a valid fetch position, so equal cursors always
	// mean zero elements here.
	if ins == fet {
		q.cfg.collector.IncRejected(q.prefix, telemetry.ReasonEmpty)
		return zero, ErrQueueEmpty
	}

	slot, err := q.itemCell(fet)
	if err != nil {
		return zero, err
	}
	present, err := slot.IsSet()
	if err != nil {
		return zero, err
	}
	if !present {
		// A crash between cursor and item writes can orphan or lose a slot.
		// Surface the default-valued element rather than wedging the queue.
		q.cfg.logger.Warn().Str("queue", q.prefix).Int64("slot", fet).Msg("dequeue found an empty slot")
	}
	value, err := slot.Value()
	if err != nil {
		return zero, fmt.Errorf("queue %s: read slot %d: %w", q.prefix, fet, err)
	}
	if err := slot.Delete(); err != nil {
		return zero, fmt.Errorf("queue %s: release slot %d: %w", q.prefix, fet, err)
	}

	next := (fet + 1) % int64(q.length)
	if err := q.fetch.Set(next); err != nil {
		return zero, fmt.Errorf("queue %s: advance fetch cursor: %w", q.prefix, err)
	}
	if ins == full {
		// Leaving the full state: the slot just vacated is where the next
		// enqueue must land.
		if err := q.insert.Set(fet); err != nil {
			return zero, fmt.Errorf("queue %s: reopen capacity: %w", q.prefix, err)
		}
	}

	q.cfg.collector.IncDequeued(q.prefix)
	q.cfg.collector.SetQueueDepth(q.prefix, q.Count())
	q.cfg.logger.Debug().Str("queue", q.prefix).Int64("slot", fet).Int("count", q.Count()).Msg("dequeued")
	return value, nil
}

func (q *Queue[T]) itemKey(index int64) string {
	return fmt.Sprintf("%s:item:%d", q.prefix, index)
}

// itemCell builds a fresh accessor for one slot. Item slots must never be
// addressed through a reused cell because its cache would go stale across
// operations.
func (q *Queue[T]) itemCell(index int64) (*cell.Cell[T], error) {
	var zero T
	slot, err := cell.New(q.backend, q.itemKey(index), zero, q.codec)
	if err != nil {
		return nil, fmt.Errorf("queue %s: bind slot %d: %w", q.prefix, index, err)
	}
	return slot, nil
}

// cursors returns the cached cursor values. The caches are primed during New
// and kept coherent by the Set calls in Enqueue and Dequeue, so the reads
// cannot fail.
func (q *Queue[T]) cursors() (int64, int64) {
	ins, _ := q.insert.Value()
	fet, _ := q.fetch.Value()
	return ins, fet
}

func (q *Queue[T]) loadCursors() (int64, int64, error) {
	ins, err := q.insert.Value()
	if err != nil {
		return 0, 0, fmt.Errorf("queue %s: load insert cursor: %w", q.prefix, err)
	}
	fet, err := q.fetch.Value()
	if err != nil {
		return 0, 0, fmt.Errorf("queue %s: load fetch cursor: %w", q.prefix, err)
	}
	return ins, fet, nil
}

func (q *Queue[T]) validateCursors(ins, fet int64) error {
	if ins != full && (ins < 0 || ins >= int64(q.length)) {
		return fmt.Errorf("queue %s: persisted insert cursor %d out of range for length %d", q.prefix, ins, q.length)
	}
	if fet < 0 || fet >= int64(q.length) {
		return fmt.Errorf("queue %s: persisted fetch cursor %d out of range for length %d", q.prefix, fet, q.length)
	}
	return nil
}
