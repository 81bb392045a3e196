// context.go carries the current request and session through context.Context
// so notices built deeper in the call stack can pick them up.

package hoptoad

import "context"

type requestKey struct{}
type sessionKey struct{}

// WithRequest returns a context carrying req.
func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestFromContext returns the request attached with WithRequest.
func RequestFromContext(ctx context.Context) (Request, bool) {
	req, ok := ctx.Value(requestKey{}).(Request)
	return req, ok && req != nil
}

// WithSession returns a context carrying session data. session takes any
// form accepted by Notice.SetSession.
func WithSession(ctx context.Context, session any) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session attached with WithSession.
func SessionFromContext(ctx context.Context) (any, bool) {
	v := ctx.Value(sessionKey{})
	return v, v != nil
}

// attachContext copies request and session from ctx into n. A session set
// explicitly with WithSession wins over one carried by the request.
func attachContext(ctx context.Context, n *Notice) {
	if ctx == nil {
		return
	}
	if req, ok := RequestFromContext(ctx); ok {
		n.SetRequest(req)
	}
	if session, ok := SessionFromContext(ctx); ok {
		n.SetSession(session)
	}
}
