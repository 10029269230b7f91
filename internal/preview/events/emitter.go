package events

import (
	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/configtypes"
)

// EventEmitter defines the interface for event logging backends.
// Implementations should be fire-and-forget, non-blocking.
type EventEmitter interface {
	// Emit sends an event. Errors are logged internally, never returned to caller.
	Emit(event *PreviewEvent)

	// Close gracefully shuts down the emitter.
	Close() error
}

// NoopEmitter is a no-op implementation for testing and disabled logging.
type NoopEmitter struct{}

// Emit does nothing.
func (n *NoopEmitter) Emit(event *PreviewEvent) {}

// Close returns nil.
func (n *NoopEmitter) Close() error { return nil }

// NewEmitter builds the emitter configured by cfg; a nil or disabled config yields a NoopEmitter.
func NewEmitter(cfg *configtypes.EventLoggingConfig, logger *zap.Logger) (EventEmitter, error) {
	if cfg == nil || !cfg.File.Enabled {
		return &NoopEmitter{}, nil
	}

	emitter, err := NewFileEmitter(cfg.File, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Event logging enabled",
		zap.String("path", cfg.File.Path),
		zap.String("template", emitter.formatter.Template()))
	return emitter, nil
}
