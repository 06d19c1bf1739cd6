package ports

import "context"

// Logger is the logging interface the services depend on, so the backing
// implementation (zerolog, standard log, a test recorder) stays swappable.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs err alongside the message.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
