// Package service wires the configuration to a store backend and builds the
// configured cells and queues on top of it.
package service

import (
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"github.com/timzifer/prefstore/config"
	"github.com/timzifer/prefstore/store"
	"github.com/timzifer/prefstore/telemetry"
)

// Service owns a backend together with the cells and queues declared in the
// configuration.
type Service struct {
	logger    zerolog.Logger
	collector telemetry.Collector

	backend     store.Backend
	backendName string

	cells  map[string]Cell
	queues map[string]Queue
}

// New validates the configuration, opens the backend and constructs every
// configured cell and queue. A nil collector disables telemetry.
func New(cfg *config.Config, logger zerolog.Logger, collector telemetry.Collector) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collector == nil {
		collector = telemetry.Noop()
	}

	backend, err := openBackend(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	instrumented := &instrumentedBackend{
		inner:     backend,
		name:      cfg.Storage.Backend,
		collector: collector,
	}

	svc := &Service{
		logger:      logger,
		collector:   collector,
		backend:     instrumented,
		backendName: cfg.Storage.Backend,
		cells:       make(map[string]Cell, len(cfg.Cells)),
		queues:      make(map[string]Queue, len(cfg.Queues)),
	}

	for _, cc := range cfg.Cells {
		handle, err := buildCell(svc.backend, cc)
		if err != nil {
			return nil, fmt.Errorf("cell %s: %w", cc.ID, err)
		}
		svc.cells[cc.ID] = handle
	}
	for _, qc := range cfg.Queues {
		handle, err := buildQueue(svc.backend, qc, logger, collector)
		if err != nil {
			return nil, fmt.Errorf("queue %s: %w", qc.ID, err)
		}
		svc.queues[qc.ID] = handle
		collector.SetQueueDepth(qc.Prefix, handle.Count())
	}

	logger.Info().
		Str("backend", cfg.Storage.Backend).
		Int("cells", len(svc.cells)).
		Int("queues", len(svc.queues)).
		Msg("service initialised")
	return svc, nil
}

func openBackend(cfg config.StorageConfig, logger zerolog.Logger) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendFile:
		return store.OpenFile(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close releases the backend. Cells and queues built on the service must not
// be mutated afterwards; backends without teardown make Close a no-op.
func (s *Service) Close() error {
	if closer, ok := s.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close %s backend: %w", s.backendName, err)
		}
	}
	s.logger.Debug().Str("backend", s.backendName).Msg("service closed")
	return nil
}

// Cell returns the configured cell with the given id.
func (s *Service) Cell(id string) (Cell, error) {
	if id == "" {
		return nil, fmt.Errorf("cell id must not be empty")
	}
	handle, ok := s.cells[id]
	if !ok {
		return nil, fmt.Errorf("unknown cell %q", id)
	}
	return handle, nil
}

// Queue returns the configured queue with the given id.
func (s *Service) Queue(id string) (Queue, error) {
	if id == "" {
		return nil, fmt.Errorf("queue id must not be empty")
	}
	handle, ok := s.queues[id]
	if !ok {
		return nil, fmt.Errorf("unknown queue %q", id)
	}
	return handle, nil
}

// CellStatus describes one configured cell for diagnostics.
type CellStatus struct {
	ID   string
	Key  string
	Kind config.ValueKind
	Set  bool
}

// QueueStatus describes one configured queue for diagnostics.
type QueueStatus struct {
	ID     string
	Prefix string
	Kind   config.ValueKind
	Length int
	Count  int
}

// Status is a point-in-time view over everything the service owns.
type Status struct {
	Backend string
	Cells   []CellStatus
	Queues  []QueueStatus
}

// Status inspects every cell and queue. Cells whose presence cannot be
// determined are reported as unset.
func (s *Service) Status() Status {
	status := Status{Backend: s.backendName}

	for _, handle := range s.cells {
		set, err := handle.IsSet()
		if err != nil {
			s.logger.Warn().Err(err).Str("cell", handle.ID()).Msg("cell status unavailable")
			set = false
		}
		status.Cells = append(status.Cells, CellStatus{
			ID:   handle.ID(),
			Key:  handle.Key(),
			Kind: handle.Kind(),
			Set:  set,
		})
	}
	sort.Slice(status.Cells, func(i, j int) bool { return status.Cells[i].ID < status.Cells[j].ID })

	for _, handle := range s.queues {
		status.Queues = append(status.Queues, QueueStatus{
			ID:     handle.ID(),
			Prefix: handle.Prefix(),
			Kind:   handle.Kind(),
			Length: handle.Length(),
			Count:  handle.Count(),
		})
	}
	sort.Slice(status.Queues, func(i, j int) bool { return status.Queues[i].ID < status.Queues[j].ID })

	return status
}

// instrumentedBackend counts mutating operations without changing semantics.
type instrumentedBackend struct {
	inner     store.Backend
	name      string
	collector telemetry.Collector
}

func (b *instrumentedBackend) Get(key string) (interface{}, bool) {
	return b.inner.Get(key)
}

func (b *instrumentedBackend) Set(key string, value interface{}) error {
	if err := b.inner.Set(key, value); err != nil {
		return err
	}
	b.collector.IncStoreWrite(b.name)
	return nil
}

func (b *instrumentedBackend) Has(key string) bool {
	return b.inner.Has(key)
}

func (b *instrumentedBackend) Delete(key string) error {
	if err := b.inner.Delete(key); err != nil {
		return err
	}
	b.collector.IncStoreWrite(b.name)
	return nil
}

func (b *instrumentedBackend) Close() error {
	if closer, ok := b.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
