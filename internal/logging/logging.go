// Package logging configures logrus and carries a request-scoped entry in the context.
package logging

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

type contextLoggerKey struct{}

var stdEntry = logrus.NewEntry(logrus.StandardLogger())

// Setup switches the standard logger to JSON output at the given level.
// An unknown level falls back to info.
func Setup(out io.Writer, level string) {
	logger := logrus.StandardLogger()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}

// WithFields returns a context whose logger carries fields merged with any
// fields already present.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return context.WithValue(ctx, contextLoggerKey{}, FromContext(ctx).WithFields(fields))
}

// FromContext returns the logger stored in ctx, or the standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(contextLoggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return stdEntry
}
