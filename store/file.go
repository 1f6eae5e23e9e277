package store

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// File is a Backend persisted as a single YAML document on disk. The whole
// document is rewritten atomically on every mutation, so each Set or Delete is
// durable on its own once it returns. That matches the usage model of an
// engine settings file: few keys, mutated rarely, read back after restart.
//
// A File must be owned by a single process. There is no cross-process locking.
type File struct {
	path   string
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
	values map[string]interface{}
}

// OpenFile loads the document at path, creating an empty backend when the
// file does not exist yet. The file itself is only created on the first
// mutation.
func OpenFile(path string, logger zerolog.Logger) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("store file path must not be empty")
	}
	f := &File{path: path, logger: logger, values: make(map[string]interface{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read store file %s: %w", path, err)
	}

	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}
	for key, value := range raw {
		normalized, err := Normalize(value)
		if err != nil {
			return nil, fmt.Errorf("store file %s key %s: %w", path, key, err)
		}
		f.values[key] = normalized
	}
	return f, nil
}

// Path returns the location of the backing document.
func (f *File) Path() string {
	return f.path
}

// Get returns the value stored under key.
func (f *File) Get(key string) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key and flushes the document.
func (f *File) Set(key string, value interface{}) error {
	if key == "" {
		return fmt.Errorf("store key must not be empty")
	}
	normalized, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("set %s: store file %s is closed", key, f.path)
	}
	previous, existed := f.values[key]
	f.values[key] = normalized
	if err := f.flushLocked(); err != nil {
		// Roll the in-memory view back so it keeps matching the disk state.
		if existed {
			f.values[key] = previous
		} else {
			delete(f.values, key)
		}
		return fmt.Errorf("persist %s: %w", key, err)
	}
	f.logger.Debug().Str("key", key).Msg("store value written")
	return nil
}

// Has reports whether key is present.
func (f *File) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}

// Delete removes key and flushes the document.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("delete %s: store file %s is closed", key, f.path)
	}
	previous, existed := f.values[key]
	if !existed {
		return nil
	}
	delete(f.values, key)
	if err := f.flushLocked(); err != nil {
		f.values[key] = previous
		return fmt.Errorf("persist delete %s: %w", key, err)
	}
	f.logger.Debug().Str("key", key).Msg("store value deleted")
	return nil
}

// Close marks the backend closed. Every mutation is flushed synchronously, so
// there is nothing left to write; subsequent Set and Delete calls fail, reads
// keep serving the last loaded state. Closing twice is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *File) flushLocked() error {
	data, err := yaml.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("encode store document: %w", err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write store document: %w", err)
	}
	return nil
}
