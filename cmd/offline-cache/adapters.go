package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ZapRedisLogger adapts zap.Logger to the go-redis internal logger
type ZapRedisLogger struct {
	logger *zap.Logger
}

// NewZapRedisLogger creates a new ZapRedisLogger adapter
func NewZapRedisLogger(logger *zap.Logger) *ZapRedisLogger {
	return &ZapRedisLogger{logger: logger.Named("redis")}
}

// Printf logs a go-redis message at warn level; go-redis only logs failures
func (z *ZapRedisLogger) Printf(_ context.Context, format string, v ...interface{}) {
	z.logger.Warn(fmt.Sprintf(format, v...))
}
