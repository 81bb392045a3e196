// Package logger provides the leveled logger used by the notifier.
// Messages are written through go-kit/log so host applications get
// logfmt or JSON lines with a level key.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger specifies the logging API used by the notifier. Each call writes
// one record with the message under "msg", encoded as logfmt or JSON
// depending on the Format the logger was built with.
type Logger interface {
	// Debug logs msg on debug level.
	Debug(msg string)
	// Info logs msg on info level.
	Info(msg string)
	// Warn logs msg on warning level.
	Warn(msg string)
	// Error logs msg on error level.
	Error(msg string)
}

// Format selects the line encoding.
type Format string

const (
	// FormatLogfmt writes key=value lines.
	FormatLogfmt Format = "logfmt"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

var _ Logger = (*logger)(nil)

type logger struct {
	kitLogger log.Logger
}

// New returns a logfmt logger writing to out that drops messages below levelText.
func New(out io.Writer, levelText string) (Logger, error) {
	return NewWithFormat(out, levelText, FormatLogfmt)
}

// NewWithFormat returns a logger writing to out in the given format.
func NewWithFormat(out io.Writer, levelText string, format Format) (Logger, error) {
	allow, err := parseLevel(levelText)
	if err != nil {
		return nil, err
	}

	var l log.Logger
	switch format {
	case FormatJSON:
		l = log.NewJSONLogger(log.NewSyncWriter(out))
	default:
		l = log.NewLogfmtLogger(log.NewSyncWriter(out))
	}
	l = log.With(l, "ts", log.DefaultTimestampUTC, "component", "hoptoad")

	return &logger{kitLogger: level.NewFilter(l, allow)}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &logger{kitLogger: log.NewNopLogger()}
}

func (l *logger) Debug(msg string) {
	_ = level.Debug(l.kitLogger).Log("msg", msg)
}

func (l *logger) Info(msg string) {
	_ = level.Info(l.kitLogger).Log("msg", msg)
}

func (l *logger) Warn(msg string) {
	_ = level.Warn(l.kitLogger).Log("msg", msg)
}

func (l *logger) Error(msg string) {
	_ = level.Error(l.kitLogger).Log("msg", msg)
}

func parseLevel(text string) (level.Option, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn", "warning":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	default:
		return nil, fmt.Errorf("unrecognized log level %q", text)
	}
}
