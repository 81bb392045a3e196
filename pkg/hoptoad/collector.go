// collector.go provides the Collector that builds notices and hands them to sinks.

package hoptoad

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Collector builds notices from a fixed Config and records them to sinks.
type Collector interface {
	// NewNotice returns a notice built from the collector's config whose
	// backtrace starts at the caller.
	NewNotice() *Notice

	// Notify builds a notice for err, attaches any request and session
	// carried by ctx, and records it.
	Notify(ctx context.Context, err error) error

	// Record assigns an ID when missing and writes the notice to the sinks.
	// Blocks until every sink returns.
	Record(ctx context.Context, notice *Notice) error

	// Flush delegates to the sinks.
	Flush(ctx context.Context) error

	// Close releases the sinks.
	Close() error
}

// CollectorOption configures a Collector.
type CollectorOption func(*collectorConfig)

type collectorConfig struct {
	sinks          []Sink
	environmentVar bool
}

// WithSink adds a sink. Every sink receives every notice.
func WithSink(sink Sink) CollectorOption {
	return func(c *collectorConfig) {
		if sink != nil {
			c.sinks = append(c.sinks, sink)
		}
	}
}

// WithProcessEnvironment attaches the process environment to every notice
// built by the collector. Values are redacted with the environment filters.
func WithProcessEnvironment() CollectorOption {
	return func(c *collectorConfig) {
		c.environmentVar = true
	}
}

type defaultCollector struct {
	cfg            Config
	sink           Sink
	environmentVar bool
}

// NewCollector creates a Collector. Without sinks notices are discarded.
func NewCollector(cfg Config, opts ...CollectorOption) Collector {
	cc := &collectorConfig{}
	for _, opt := range opts {
		opt(cc)
	}

	var sink Sink
	switch len(cc.sinks) {
	case 0:
		sink = discardSink{}
	case 1:
		sink = cc.sinks[0]
	default:
		sink = fanoutSink(cc.sinks)
	}

	return &defaultCollector{
		cfg:            cfg.clone(),
		sink:           sink,
		environmentVar: cc.environmentVar,
	}
}

func (c *defaultCollector) NewNotice() *Notice {
	return c.newNotice(1)
}

func (c *defaultCollector) newNotice(skip int) *Notice {
	n := newNotice(c.cfg, skip+1)
	if c.environmentVar {
		n.SetEnvironmentVars(EnvironmentVars())
	}
	return n
}

func (c *defaultCollector) Notify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	n := c.newNotice(1)
	n.SetError(err)
	attachContext(ctx, n)
	return c.Record(ctx, n)
}

func (c *defaultCollector) Record(ctx context.Context, notice *Notice) error {
	if notice == nil {
		return nil
	}
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	return c.sink.Write(ctx, notice)
}

func (c *defaultCollector) Flush(ctx context.Context) error {
	return c.sink.Flush(ctx)
}

func (c *defaultCollector) Close() error {
	return c.sink.Close()
}

// discardSink drops every notice.
type discardSink struct{}

func (discardSink) Write(context.Context, *Notice) error { return nil }
func (discardSink) Flush(context.Context) error          { return nil }
func (discardSink) Close() error                         { return nil }

// fanoutSink writes to every sink and joins their errors.
type fanoutSink []Sink

func (s fanoutSink) Write(ctx context.Context, notice *Notice) error {
	return s.each(func(sink Sink) error { return sink.Write(ctx, notice) })
}

func (s fanoutSink) Flush(ctx context.Context) error {
	return s.each(func(sink Sink) error { return sink.Flush(ctx) })
}

func (s fanoutSink) Close() error {
	return s.each(Sink.Close)
}

func (s fanoutSink) each(fn func(Sink) error) error {
	var errs []error
	for _, sink := range s {
		if err := fn(sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
