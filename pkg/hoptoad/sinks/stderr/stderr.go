// Package stderr provides a sink that prints notices in human-readable form.
// Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad"
)

// Option configures the stderr sink.
type Option func(*config)

type config struct {
	verbose bool
	out     io.Writer
	noColor bool
}

// WithVerbose adds the parsed backtrace, params and session to the output.
func WithVerbose() Option {
	return func(c *config) {
		c.verbose = true
	}
}

// WithWriter sends output somewhere other than os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// WithoutColor disables ANSI colors regardless of the terminal.
func WithoutColor() Option {
	return func(c *config) {
		c.noColor = true
	}
}

type sink struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool

	header *color.Color
	label  *color.Color
}

// New creates a sink that writes to stderr.
func New(opts ...Option) hoptoad.Sink {
	cfg := &config{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &sink{
		out:     cfg.out,
		verbose: cfg.verbose,
		header:  color.New(color.FgRed, color.Bold),
		label:   color.New(color.FgCyan),
	}
	if cfg.noColor {
		s.header.DisableColor()
		s.label.DisableColor()
	}
	return s
}

// Write formats the notice.
//
//	[HOPTOAD] <time> <class>: <message> (<controller>#<action>)
func (s *sink) Write(ctx context.Context, notice *hoptoad.Notice) error {
	if notice == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("[HOPTOAD] %s %s: %s",
		notice.Time.Format("2006-01-02T15:04:05Z07:00"), notice.ErrorClass(), notice.ErrorMessage())

	req := notice.Request()
	if req.Controller != "" || req.Action != "" {
		line += fmt.Sprintf(" (%s#%s)", req.Controller, req.Action)
	}
	s.header.Fprintln(s.out, line)

	if notice.ID != "" {
		s.field("Notice", notice.ID)
	}
	s.field("Fingerprint", hoptoad.Fingerprint(notice))
	if req.URL != "" {
		s.field("URL", req.URL)
	}
	env := notice.ServerEnvironment()
	if env.EnvironmentName != "" {
		s.field("Environment", env.EnvironmentName)
	}

	if !s.verbose {
		return nil
	}

	if bt := notice.Backtrace(); len(bt) > 0 {
		s.label.Fprintf(s.out, "        Backtrace:\n")
		for _, l := range bt {
			fmt.Fprintf(s.out, "          %s\n", l)
		}
	}
	s.vars("Params", req.Params)
	s.vars("Session", req.Session)
	return nil
}

func (s *sink) field(name, value string) {
	s.label.Fprintf(s.out, "        %s: ", name)
	fmt.Fprintln(s.out, value)
}

func (s *sink) vars(name string, vars hoptoad.Vars) {
	if len(vars) == 0 {
		return
	}
	s.label.Fprintf(s.out, "        %s:\n", name)
	for _, v := range vars {
		fmt.Fprintf(s.out, "          %s = %v\n", v.Key, v.Value)
	}
}

// Flush is a no-op for the stderr sink.
func (s *sink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the stderr sink.
func (s *sink) Close() error {
	return nil
}
