package logger

import (
	"github.com/google/wire"
)

// ProviderSet is the wire provider set for the logger.
var ProviderSet = wire.NewSet(
	NewBootstrapLogger,
	NewConfiguredLogger,
	wire.Bind(new(Logger), new(*SlogAdapter)),
)

// Config holds the values needed to configure the logger.
type Config struct {
	Environment string
	LogLevel    string
	Component   string // "coordinator" or "satellite:<tag>"
}

// NewConfiguredLogger creates the process logger from config.
func NewConfiguredLogger(config Config) *SlogAdapter {
	l := NewSlogAdapter(config.Environment, config.LogLevel)
	if config.Component != "" {
		l = l.With("component", config.Component)
	}
	return l
}
