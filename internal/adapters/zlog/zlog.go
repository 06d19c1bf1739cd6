// Package zlog implements ports.Logger on zerolog.
package zlog

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"marginDiary/internal/ports"
)

// Logger adapts a zerolog.Logger to the ports.Logger interface.
type Logger struct {
	log zerolog.Logger
}

var _ ports.Logger = (*Logger)(nil)

// New creates a logger writing to stderr at the given level. Unknown level
// strings fall back to info.
func New(level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	return &Logger{log: l}
}

// NewWith wraps an existing zerolog.Logger, for tests and for sharing one
// configured logger across components.
func NewWith(l zerolog.Logger) *Logger {
	return &Logger{log: l}
}

func withFields(e *zerolog.Event, fields []map[string]interface{}) *zerolog.Event {
	if len(fields) > 0 && fields[0] != nil {
		e = e.Fields(fields[0])
	}
	return e
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.log.Debug(), fields).Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.log.Info(), fields).Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.log.Warn(), fields).Msg(msg)
}

func (l *Logger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	withFields(l.log.Error().Err(err), fields).Msg(msg)
}
