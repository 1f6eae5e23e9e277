package service

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/timzifer/prefstore/cell"
	"github.com/timzifer/prefstore/config"
	"github.com/timzifer/prefstore/queue"
	"github.com/timzifer/prefstore/store"
	"github.com/timzifer/prefstore/telemetry"
)

// Cell exposes a configured cell without its concrete element type. Values
// passed to Set are converted to the cell's kind; incompatible values fail.
type Cell interface {
	ID() string
	Key() string
	Kind() config.ValueKind
	IsSet() (bool, error)
	Value() (interface{}, error)
	Set(value interface{}) error
	Clear() error
}

// Queue exposes a configured queue without its concrete element type.
type Queue interface {
	ID() string
	Prefix() string
	Kind() config.ValueKind
	Length() int
	Count() int
	Enqueue(value interface{}) error
	Dequeue() (interface{}, error)
}

type cellHandle[T any] struct {
	id      string
	kind    config.ValueKind
	cell    *cell.Cell[T]
	convert func(interface{}) (T, error)
}

func (h *cellHandle[T]) ID() string             { return h.id }
func (h *cellHandle[T]) Key() string            { return h.cell.Key() }
func (h *cellHandle[T]) Kind() config.ValueKind { return h.kind }

func (h *cellHandle[T]) IsSet() (bool, error) { return h.cell.IsSet() }

func (h *cellHandle[T]) Value() (interface{}, error) { return h.cell.Value() }

func (h *cellHandle[T]) Set(value interface{}) error {
	converted, err := h.convert(value)
	if err != nil {
		return fmt.Errorf("cell %s: %w", h.id, err)
	}
	return h.cell.Set(converted)
}

func (h *cellHandle[T]) Clear() error { return h.cell.Delete() }

type queueHandle[T any] struct {
	id      string
	kind    config.ValueKind
	queue   *queue.Queue[T]
	convert func(interface{}) (T, error)
}

func (h *queueHandle[T]) ID() string             { return h.id }
func (h *queueHandle[T]) Prefix() string         { return h.queue.Prefix() }
func (h *queueHandle[T]) Kind() config.ValueKind { return h.kind }
func (h *queueHandle[T]) Length() int            { return h.queue.Length() }
func (h *queueHandle[T]) Count() int             { return h.queue.Count() }

func (h *queueHandle[T]) Enqueue(value interface{}) error {
	converted, err := h.convert(value)
	if err != nil {
		return fmt.Errorf("queue %s: %w", h.id, err)
	}
	return h.queue.Enqueue(converted)
}

func (h *queueHandle[T]) Dequeue() (interface{}, error) { return h.queue.Dequeue() }

func buildCell(b store.Backend, cc config.CellConfig) (Cell, error) {
	def, err := cc.DefaultValue()
	if err != nil {
		return nil, err
	}
	switch cc.Type {
	case config.ValueKindString:
		c, err := cell.NewString(b, cc.Key, def.(string))
		if err != nil {
			return nil, err
		}
		return &cellHandle[string]{id: cc.ID, kind: cc.Type, cell: c, convert: convertString}, nil
	case config.ValueKindInteger:
		c, err := cell.NewInt(b, cc.Key, def.(int64))
		if err != nil {
			return nil, err
		}
		return &cellHandle[int64]{id: cc.ID, kind: cc.Type, cell: c, convert: convertInt}, nil
	case config.ValueKindFloat:
		c, err := cell.NewFloat(b, cc.Key, def.(float64))
		if err != nil {
			return nil, err
		}
		return &cellHandle[float64]{id: cc.ID, kind: cc.Type, cell: c, convert: convertFloat}, nil
	case config.ValueKindDouble:
		c, err := cell.NewDouble(b, cc.Key, def.(float64))
		if err != nil {
			return nil, err
		}
		return &cellHandle[float64]{id: cc.ID, kind: cc.Type, cell: c, convert: convertFloat}, nil
	case config.ValueKindBool:
		c, err := cell.NewBool(b, cc.Key, def.(bool))
		if err != nil {
			return nil, err
		}
		return &cellHandle[bool]{id: cc.ID, kind: cc.Type, cell: c, convert: convertBool}, nil
	case config.ValueKindDecimal:
		c, err := cell.NewDecimal(b, cc.Key, def.(decimal.Decimal))
		if err != nil {
			return nil, err
		}
		return &cellHandle[decimal.Decimal]{id: cc.ID, kind: cc.Type, cell: c, convert: convertDecimal}, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %q", cc.Type)
	}
}

func buildQueue(b store.Backend, qc config.QueueConfig, logger zerolog.Logger, collector telemetry.Collector) (Queue, error) {
	opts := []queue.Option{queue.WithLogger(logger), queue.WithCollector(collector)}
	switch qc.Type {
	case config.ValueKindString:
		q, err := queue.New(b, qc.Prefix, qc.Length, cell.StringCodec(), opts...)
		if err != nil {
			return nil, err
		}
		return &queueHandle[string]{id: qc.ID, kind: qc.Type, queue: q, convert: convertString}, nil
	case config.ValueKindInteger:
		q, err := queue.New(b, qc.Prefix, qc.Length, cell.IntCodec(), opts...)
		if err != nil {
			return nil, err
		}
		return &queueHandle[int64]{id: qc.ID, kind: qc.Type, queue: q, convert: convertInt}, nil
	case config.ValueKindFloat:
		q, err := queue.New(b, qc.Prefix, qc.Length, cell.FloatCodec(), opts...)
		if err != nil {
			return nil, err
		}
		return &queueHandle[float64]{id: qc.ID, kind: qc.Type, queue: q, convert: convertFloat}, nil
	case config.ValueKindDouble:
		q, err := queue.New(b, qc.Prefix, qc.Length, cell.DoubleCodec(), opts...)
		if err != nil {
			return nil, err
		}
		return &queueHandle[float64]{id: qc.ID, kind: qc.Type, queue: q, convert: convertFloat}, nil
	case config.ValueKindBool:
		q, err := queue.New(b, qc.Prefix, qc.Length, cell.BoolCodec(), opts...)
		if err != nil {
			return nil, err
		}
		return &queueHandle[bool]{id: qc.ID, kind: qc.Type, queue: q, convert: convertBool}, nil
	case config.ValueKindDecimal:
		q, err := queue.New(b, qc.Prefix, qc.Length, cell.DecimalCodec(), opts...)
		if err != nil {
			return nil, err
		}
		return &queueHandle[decimal.Decimal]{id: qc.ID, kind: qc.Type, queue: q, convert: convertDecimal}, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %q", qc.Type)
	}
}

func convertString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("expected string value, got %T", value)
	}
}

func convertInt(value interface{}) (int64, error) {
	switch v := value.(type) {
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
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("float value %v is not integral", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer-compatible value, got %T", value)
	}
}

func convertFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expected number-compatible value, got %T", value)
	}
}

func convertBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int8:
		return v != 0, nil
	case int16:
		return v != 0, nil
	case int32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case uint8:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("expected bool-compatible value, got %T", value)
	}
}

func convertDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse decimal %q: %w", v, err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("expected decimal-compatible value, got %T", value)
	}
}
