// Package config declares the YAML configuration consumed by the service
// layer: the storage backend, the typed cells and the persisted queues.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ValueKind describes the primitive type stored inside a cell or queue slot.
type ValueKind string

const (
	// ValueKindString represents plain UTF-8 strings.
	ValueKindString ValueKind = "string"
	// ValueKindInteger represents signed 64-bit integers.
	ValueKindInteger ValueKind = "integer"
	// ValueKindFloat represents floating point numbers in the store's native
	// float representation.
	ValueKindFloat ValueKind = "float"
	// ValueKindBool represents booleans, encoded as the integers 0 and 1.
	ValueKindBool ValueKind = "bool"
	// ValueKindDouble represents bit-exact float64 values stored as two
	// 32-bit halves.
	ValueKindDouble ValueKind = "double"
	// ValueKindDecimal represents arbitrary precision decimal numbers.
	ValueKindDecimal ValueKind = "decimal"
)

// ParseValueKind normalises the textual representation of a value kind.
func ParseValueKind(value string) (ValueKind, error) {
	switch ValueKind(strings.ToLower(strings.TrimSpace(value))) {
	case ValueKindString:
		return ValueKindString, nil
	case ValueKindInteger:
		return ValueKindInteger, nil
	case ValueKindFloat:
		return ValueKindFloat, nil
	case ValueKindBool:
		return ValueKindBool, nil
	case ValueKindDouble:
		return ValueKindDouble, nil
	case ValueKindDecimal:
		return ValueKindDecimal, nil
	default:
		return "", fmt.Errorf("unknown value kind %q", value)
	}
}

// Storage backend identifiers.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
)

// StorageConfig selects and parameterises the store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// CellConfig configures a typed settings cell.
type CellConfig struct {
	ID      string    `yaml:"id"`
	Key     string    `yaml:"key,omitempty"`
	Type    ValueKind `yaml:"type"`
	Default yaml.Node `yaml:"default,omitempty"`
}

// QueueConfig configures a persisted circular queue.
type QueueConfig struct {
	ID     string    `yaml:"id"`
	Prefix string    `yaml:"prefix,omitempty"`
	Length int       `yaml:"length"`
	Type   ValueKind `yaml:"type"`
}

// LokiConfig enables shipping log output to a Loki endpoint.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url,omitempty"`
	Labels  map[string]string `yaml:"labels,omitempty"`
}

// LoggingConfig adjusts the zerolog setup.
type LoggingConfig struct {
	Level  string     `yaml:"level,omitempty"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki,omitempty"`
}

// TelemetryConfig toggles Prometheus metric registration.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the root configuration document.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Cells     []CellConfig    `yaml:"cells,omitempty"`
	Queues    []QueueConfig   `yaml:"queues,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// Load reads, parses and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	for i := range c.Cells {
		if c.Cells[i].Key == "" {
			c.Cells[i].Key = c.Cells[i].ID
		}
	}
	for i := range c.Queues {
		if c.Queues[i].Prefix == "" {
			c.Queues[i].Prefix = c.Queues[i].ID
		}
	}
}

// Validate checks the document for structural errors.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage backend %q requires a path", BackendFile)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	cellIDs := make(map[string]struct{}, len(c.Cells))
	cellKeys := make(map[string]string, len(c.Cells))
	for _, cc := range c.Cells {
		if cc.ID == "" {
			return fmt.Errorf("cell id must not be empty")
		}
		if _, ok := cellIDs[cc.ID]; ok {
			return fmt.Errorf("duplicate cell id %q", cc.ID)
		}
		cellIDs[cc.ID] = struct{}{}
		if owner, ok := cellKeys[cc.Key]; ok {
			return fmt.Errorf("cell %s: key %q already used by cell %s", cc.ID, cc.Key, owner)
		}
		cellKeys[cc.Key] = cc.ID
		if _, err := ParseValueKind(string(cc.Type)); err != nil {
			return fmt.Errorf("cell %s: %w", cc.ID, err)
		}
		if !cc.Default.IsZero() {
			if _, err := cc.DefaultValue(); err != nil {
				return fmt.Errorf("cell %s: %w", cc.ID, err)
			}
		}
	}

	queueIDs := make(map[string]struct{}, len(c.Queues))
	prefixes := make(map[string]string, len(c.Queues))
	for _, qc := range c.Queues {
		if qc.ID == "" {
			return fmt.Errorf("queue id must not be empty")
		}
		if _, ok := queueIDs[qc.ID]; ok {
			return fmt.Errorf("duplicate queue id %q", qc.ID)
		}
		queueIDs[qc.ID] = struct{}{}
		if qc.Length <= 0 {
			return fmt.Errorf("queue %s: length must be positive, got %d", qc.ID, qc.Length)
		}
		if _, err := ParseValueKind(string(qc.Type)); err != nil {
			return fmt.Errorf("queue %s: %w", qc.ID, err)
		}
		if owner, ok := prefixes[qc.Prefix]; ok {
			return fmt.Errorf("queue %s: prefix %q already used by queue %s", qc.ID, qc.Prefix, owner)
		}
		prefixes[qc.Prefix] = qc.ID
		// A queue owns every key under its prefix; a cell keyed inside that
		// namespace (or on the prefix itself) would alias the queue's state.
		for key, owner := range cellKeys {
			if key == qc.Prefix || strings.HasPrefix(key, qc.Prefix+":") {
				return fmt.Errorf("queue %s: prefix %q collides with cell %s key %q", qc.ID, qc.Prefix, owner, key)
			}
		}
	}

	return nil
}

// DefaultValue decodes the configured default according to the cell's kind.
// An absent default yields the kind's zero value.
func (cc CellConfig) DefaultValue() (interface{}, error) {
	switch cc.Type {
	case ValueKindString:
		if cc.Default.IsZero() {
			return "", nil
		}
		var v string
		if err := cc.Default.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode string default: %w", err)
		}
		return v, nil
	case ValueKindInteger:
		if cc.Default.IsZero() {
			return int64(0), nil
		}
		var v int64
		if err := cc.Default.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode integer default: %w", err)
		}
		return v, nil
	case ValueKindFloat, ValueKindDouble:
		if cc.Default.IsZero() {
			return float64(0), nil
		}
		var v float64
		if err := cc.Default.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode float default: %w", err)
		}
		return v, nil
	case ValueKindBool:
		if cc.Default.IsZero() {
			return false, nil
		}
		var v bool
		if err := cc.Default.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode bool default: %w", err)
		}
		return v, nil
	case ValueKindDecimal:
		if cc.Default.IsZero() {
			return decimal.Decimal{}, nil
		}
		var raw interface{}
		if err := cc.Default.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode decimal default: %w", err)
		}
		switch d := raw.(type) {
		case string:
			v, err := decimal.NewFromString(d)
			if err != nil {
				return nil, fmt.Errorf("parse decimal default %q: %w", d, err)
			}
			return v, nil
		case int:
			return decimal.NewFromInt(int64(d)), nil
		case int64:
			return decimal.NewFromInt(d), nil
		case float64:
			return decimal.NewFromFloat(d), nil
		default:
			return nil, fmt.Errorf("decimal default must be a string or number, got %T", raw)
		}
	default:
		return nil, fmt.Errorf("unknown value kind %q", cc.Type)
	}
}
