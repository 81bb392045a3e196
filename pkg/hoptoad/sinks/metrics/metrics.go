// Package metrics wraps a sink and instruments every call with a counter and
// a latency histogram.
package metrics

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var _ hoptoad.Sink = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	next    hoptoad.Sink
}

// MetricsMiddleware instruments next. Both instruments are labelled by
// "method" and "outcome".
func MetricsMiddleware(next hoptoad.Sink, counter metrics.Counter, latency metrics.Histogram) hoptoad.Sink {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		next:    next,
	}
}

// MakeMetrics registers the counter and histogram on reg.
func MakeMetrics(reg prometheus.Registerer, namespace, subsystem string) (metrics.Counter, metrics.Histogram) {
	factory := promauto.With(reg)
	counter := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "notices_total",
		Help:      "Number of sink calls, by method and outcome.",
	}, []string{"method", "outcome"})
	latency := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "latency_seconds",
		Help:      "Duration of sink calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "outcome"})
	return kitprometheus.NewCounter(counter), kitprometheus.NewHistogram(latency)
}

func (mm *metricsMiddleware) Write(ctx context.Context, notice *hoptoad.Notice) (err error) {
	defer func(begin time.Time) {
		mm.observe("write", begin, err)
	}(time.Now())

	return mm.next.Write(ctx, notice)
}

func (mm *metricsMiddleware) Flush(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		mm.observe("flush", begin, err)
	}(time.Now())

	return mm.next.Flush(ctx)
}

func (mm *metricsMiddleware) Close() (err error) {
	defer func(begin time.Time) {
		mm.observe("close", begin, err)
	}(time.Now())

	return mm.next.Close()
}

func (mm *metricsMiddleware) observe(method string, begin time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	mm.counter.With("method", method, "outcome", outcome).Add(1)
	mm.latency.With("method", method, "outcome", outcome).Observe(time.Since(begin).Seconds())
}
