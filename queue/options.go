package queue

import (
	"github.com/rs/zerolog"

	"github.com/timzifer/prefstore/telemetry"
)

// Option adjusts queue construction.
type Option func(cfg *settings) error

type settings struct {
	logger    zerolog.Logger
	collector telemetry.Collector
}

func defaultSettings() settings {
	return settings{
		logger:    zerolog.Nop(),
		collector: telemetry.Noop(),
	}
}

// WithLogger provides a custom logger instance for the queue.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.logger = logger
		return nil
	}
}

// WithCollector installs a telemetry collector receiving queue events.
func WithCollector(collector telemetry.Collector) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if collector != nil {
			cfg.collector = collector
		}
		return nil
	}
}
