package reminder

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is the printf-style logger used by the producer, consumer, hub and
// schedulers. Components given no Logger discard their output.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// FmtLogger writes one "[LEVEL] message" line per call to Out, or to stderr
// when Out is nil. Tests and local runs use it; binaries use SlogLogger.
type FmtLogger struct {
	Out io.Writer
}

func NewFmtLogger() *FmtLogger { return &FmtLogger{} }

func (l FmtLogger) Debugf(format string, args ...any) { l.printf("DEBUG", format, args) }
func (l FmtLogger) Infof(format string, args ...any)  { l.printf("INFO", format, args) }
func (l FmtLogger) Warnf(format string, args ...any)  { l.printf("WARN", format, args) }
func (l FmtLogger) Errorf(format string, args ...any) { l.printf("ERROR", format, args) }

func (l FmtLogger) printf(level, format string, args []any) {
	w := l.Out
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "[%s] %s\n", level, fmt.Sprintf(format, args...))
}

// SlogLogger forwards log lines to a *slog.Logger, so the JSON handler the
// binaries install also carries pipeline output.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. A nil l falls back to slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debugf(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s *SlogLogger) Infof(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s *SlogLogger) Warnf(format string, args ...any)  { s.l.Warn(fmt.Sprintf(format, args...)) }
func (s *SlogLogger) Errorf(format string, args ...any) { s.l.Error(fmt.Sprintf(format, args...)) }

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}
