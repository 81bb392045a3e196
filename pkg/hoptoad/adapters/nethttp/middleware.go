package nethttp

import (
	"net/http"

	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	namer   RouteNamer
	respond bool
}

// WithRouteNamer sets how controller and action are derived from a request.
func WithRouteNamer(namer RouteNamer) Option {
	return func(c *config) {
		c.namer = namer
	}
}

// WithRecovery answers 500 instead of re-panicking after a panic is recorded.
func WithRecovery() Option {
	return func(c *config) {
		c.respond = true
	}
}

// Middleware attaches the request to the handler context, so
// collector.Notify(r.Context(), err) inside handlers reports it, and records
// any panic raised by next. By default the panic is re-raised after recording.
// http.ErrAbortHandler is passed through unrecorded.
func Middleware(collector hoptoad.Collector, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := hoptoad.WithRequest(r.Context(), NewRequest(r, cfg.namer))

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				hoptoad.RecordPanic(ctx, collector, rec)
				if !cfg.respond {
					panic(rec)
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
