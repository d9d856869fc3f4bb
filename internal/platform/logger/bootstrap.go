package logger

import (
	"context"
	"log"
	"os"
)

// BootstrapLogger is used while configuration is still being loaded, before
// the level and format of the real logger are known.
type BootstrapLogger struct {
	logger *log.Logger
}

// NewBootstrapLogger creates the startup logger.
func NewBootstrapLogger() *BootstrapLogger {
	return &BootstrapLogger{
		logger: log.New(os.Stderr, "[BOOTSTRAP] ", log.LstdFlags),
	}
}

func (b *BootstrapLogger) Debug(ctx context.Context, msg string, args ...any) {
	b.logger.Printf("DEBUG: %s %v", msg, args)
}

func (b *BootstrapLogger) Info(ctx context.Context, msg string, args ...any) {
	b.logger.Printf("INFO: %s %v", msg, args)
}

func (b *BootstrapLogger) Warn(ctx context.Context, msg string, args ...any) {
	b.logger.Printf("WARN: %s %v", msg, args)
}

func (b *BootstrapLogger) Error(ctx context.Context, msg string, args ...any) {
	b.logger.Printf("ERROR: %s %v", msg, args)
}

var _ Logger = (*BootstrapLogger)(nil)
