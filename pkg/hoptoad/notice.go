// notice.go defines the Notice aggregate: one captured failure, ready to render.

package hoptoad

import (
	"fmt"
	"slices"
	"time"
)

// NotifierInfo identifies the reporting library.
type NotifierInfo struct {
	Name    string
	Version string
	URL     string
}

// ErrorInfo holds the error class, message and parsed backtrace.
type ErrorInfo struct {
	Class     string
	Message   string
	Backtrace []Line
}

// Exception is the minimum a host exception must expose.
type Exception interface {
	ErrorClass() string
	ErrorMessage() string
	Backtrace() []string
}

// NewException builds an Exception from plain values, for hosts that have no
// error object of their own or that report failures by hand.
func NewException(class, message string, backtrace []string) Exception {
	return rawException{class: class, message: message, backtrace: backtrace}
}

type rawException struct {
	class     string
	message   string
	backtrace []string
}

func (e rawException) ErrorClass() string   { return e.class }
func (e rawException) ErrorMessage() string { return e.message }
func (e rawException) Backtrace() []string  { return e.backtrace }

// Notice is the report for a single failure. Each Notice is owned by the call
// that created it and is not safe for concurrent mutation.
//
// Params, session, cgi data and environment variables are stored as given and
// redacted on read: Request and ServerEnvironment return filtered copies, and
// rendering goes through them.
type Notice struct {
	// ID identifies the notice in logs and sinks. It is not rendered.
	ID string

	// Time is when the notice was created. It is not rendered.
	Time time.Time

	APIKey   string
	Notifier NotifierInfo

	cfg     Config
	err     ErrorInfo
	request RequestInfo
	env     ServerEnvironment
}

// NewNotice returns a Notice populated from cfg, with the backtrace set to
// the caller's stack.
func NewNotice(cfg Config) *Notice {
	return newNotice(cfg, 1)
}

// newNotice skips skip frames above its caller when capturing the stack.
func newNotice(cfg Config, skip int) *Notice {
	cfg = cfg.clone()
	n := &Notice{
		Time:   time.Now().UTC(),
		APIKey: cfg.APIKey,
		Notifier: NotifierInfo{
			Name:    NotifierName,
			Version: NotifierVersion,
			URL:     NotifierURL,
		},
		cfg:     cfg,
		request: NewRequestInfo("", "", "", nil, nil, nil),
		env:     NewServerEnvironment(cfg.ProjectRoot, cfg.EnvironmentName, nil),
	}
	n.SetBacktrace(captureBacktrace(skip + 1))
	return n
}

// Config returns the configuration snapshot taken at construction.
func (n *Notice) Config() Config {
	return n.cfg
}

// SetError copies class, message and, when err exposes one, backtrace.
// Without a Backtrace() []string method the captured stack is kept.
func (n *Notice) SetError(err error) {
	if err == nil {
		return
	}
	if e, ok := err.(Exception); ok {
		n.SetException(e)
		return
	}
	n.err.Class = errorClass(err)
	n.err.Message = err.Error()
	if b, ok := err.(interface{ Backtrace() []string }); ok {
		n.SetBacktrace(b.Backtrace())
	}
}

// SetException copies class, message and backtrace from e.
func (n *Notice) SetException(e Exception) {
	if e == nil {
		return
	}
	n.err.Class = e.ErrorClass()
	n.err.Message = e.ErrorMessage()
	n.SetBacktrace(e.Backtrace())
}

// SetBacktrace filters and parses raw frames.
func (n *Notice) SetBacktrace(raw []string) {
	n.err.Backtrace = ParseBacktrace(raw, n.cfg.BacktraceFilters)
}

// SetErrorClass sets the error class.
func (n *Notice) SetErrorClass(class string) { n.err.Class = class }

// SetErrorMessage sets the error message.
func (n *Notice) SetErrorMessage(msg string) { n.err.Message = msg }

// ErrorClass returns the error class.
func (n *Notice) ErrorClass() string { return n.err.Class }

// ErrorMessage returns the error message.
func (n *Notice) ErrorMessage() string { return n.err.Message }

// Backtrace returns the parsed, filtered frames.
func (n *Notice) Backtrace() []Line { return slices.Clone(n.err.Backtrace) }

// ErrorInfo returns a copy of the error section.
func (n *Notice) ErrorInfo() ErrorInfo {
	info := n.err
	info.Backtrace = n.Backtrace()
	return info
}

// SetRequest copies controller, action, URL, params and headers from req.
// When req also carries session data it is copied as well.
func (n *Notice) SetRequest(req Request) {
	if req == nil {
		return
	}
	n.request.Controller = req.Controller()
	n.request.Action = req.Action()
	n.request.URL = requestURL(req)
	n.request.Params = normalizeVars(req.Params())
	n.request.CGIData = normalizeVars(req.Headers())
	if carrier, ok := req.(SessionCarrier); ok {
		n.SetSession(carrier)
	}
}

// SetSession accepts Vars, a string-keyed map, or a SessionCarrier.
// Anything else leaves an empty session.
func (n *Notice) SetSession(session any) {
	n.request.Session = normalizeSession(session)
}

// SetController sets the request controller.
func (n *Notice) SetController(controller string) { n.request.Controller = controller }

// SetAction sets the request action.
func (n *Notice) SetAction(action string) { n.request.Action = action }

// SetURL sets the request URL.
func (n *Notice) SetURL(url string) { n.request.URL = url }

// SetParams sets the request params.
func (n *Notice) SetParams(params Vars) { n.request.Params = normalizeVars(params) }

// SetCGIData sets the request headers / cgi data.
func (n *Notice) SetCGIData(data Vars) { n.request.CGIData = normalizeVars(data) }

// Request returns the request section with params, session and cgi data redacted.
func (n *Notice) Request() RequestInfo {
	r := NewRedactor(n.cfg.ParamsFilters)
	req := n.request
	req.Params = r.Redact(req.Params)
	req.Session = r.Redact(req.Session)
	req.CGIData = r.Redact(req.CGIData)
	return req
}

// SetProjectRoot sets the reported project root.
func (n *Notice) SetProjectRoot(root string) { n.env.ProjectRoot = root }

// SetEnvironmentName sets the reported environment name.
func (n *Notice) SetEnvironmentName(name string) { n.env.EnvironmentName = name }

// SetEnvironmentVars sets the server environment variables.
func (n *Notice) SetEnvironmentVars(vars Vars) { n.env.Vars = normalizeVars(vars) }

// ServerEnvironment returns the environment section with variables redacted.
func (n *Notice) ServerEnvironment() ServerEnvironment {
	env := n.env
	env.Vars = NewRedactor(n.cfg.EnvironmentFilters).Redact(env.Vars)
	return env
}

func errorClass(err error) string {
	if c, ok := err.(interface{ ErrorClass() string }); ok {
		return c.ErrorClass()
	}
	return fmt.Sprintf("%T", err)
}
