// Package nethttp connects net/http servers to hoptoad: a Request adapter over
// *http.Request and a middleware that records handler panics.
package nethttp

import (
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad"
)

// RouteNamer names the controller and action serving r.
type RouteNamer func(r *http.Request) (controller, action string)

// Request adapts *http.Request to hoptoad.Request.
//
// Params are the query string merged with an already parsed form body; the
// body is never read here. Headers are rendered CGI style (HTTP_USER_AGENT,
// REQUEST_METHOD, ...).
type Request struct {
	r                  *http.Request
	controller, action string
}

var _ hoptoad.Request = (*Request)(nil)

// NewRequest wraps r. namer may be nil.
func NewRequest(r *http.Request, namer RouteNamer) *Request {
	req := &Request{r: r}
	if namer != nil {
		req.controller, req.action = namer(r)
	}
	return req
}

func (req *Request) Controller() string { return req.controller }
func (req *Request) Action() string     { return req.action }

// Protocol honours X-Forwarded-Proto from a fronting proxy.
func (req *Request) Protocol() string {
	if proto := req.r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(proto)
	}
	if req.r.TLS != nil {
		return "https"
	}
	return "http"
}

func (req *Request) Host() string  { return req.r.Host }
func (req *Request) Path() string  { return req.r.URL.Path }
func (req *Request) Query() string { return req.r.URL.RawQuery }

func (req *Request) Params() hoptoad.Vars {
	params := map[string][]string(req.r.URL.Query())
	for k, v := range req.r.PostForm {
		params[k] = v
	}
	return hoptoad.NewVars(params)
}

func (req *Request) Headers() hoptoad.Vars {
	cgi := lo.MapEntries(req.r.Header, func(name string, values []string) (string, string) {
		return "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")), strings.Join(values, ", ")
	})
	cgi["REQUEST_METHOD"] = req.r.Method
	cgi["REQUEST_URI"] = req.r.RequestURI
	cgi["REMOTE_ADDR"] = req.r.RemoteAddr
	cgi["SERVER_PROTOCOL"] = req.r.Proto
	if req.r.URL.RawQuery != "" {
		cgi["QUERY_STRING"] = req.r.URL.RawQuery
	}
	if req.r.Header.Get("Content-Type") != "" {
		cgi["CONTENT_TYPE"] = req.r.Header.Get("Content-Type")
	}
	return hoptoad.NewVars(cgi)
}
