// request.go defines the request capability a host adapter must satisfy.

package hoptoad

import "strings"

// Request is what the notice reads from a host request.
type Request interface {
	Controller() string
	Action() string
	// Protocol is the scheme, with or without "://".
	Protocol() string
	Host() string
	Path() string
	// Query is the raw query string without "?".
	Query() string
	Params() Vars
	Headers() Vars
}

// SessionCarrier exposes session data as a mapping.
type SessionCarrier interface {
	SessionData() Vars
}

// RequestInfo is the request section of a notice.
type RequestInfo struct {
	Controller string
	Action     string
	URL        string
	Params     Vars
	Session    Vars
	CGIData    Vars
}

// NewRequestInfo builds a RequestInfo, replacing nil mappings with empty ones.
func NewRequestInfo(controller, action, url string, params, session, cgiData Vars) RequestInfo {
	return RequestInfo{
		Controller: controller,
		Action:     action,
		URL:        url,
		Params:     orEmpty(params),
		Session:    orEmpty(session),
		CGIData:    orEmpty(cgiData),
	}
}

func requestURL(req Request) string {
	proto := req.Protocol()
	if proto != "" && !strings.HasSuffix(proto, "://") {
		proto += "://"
	}
	url := proto + req.Host() + req.Path()
	if q := req.Query(); q != "" {
		url += "?" + q
	}
	return url
}

func normalizeSession(session any) Vars {
	switch s := session.(type) {
	case nil:
		return Vars{}
	case SessionCarrier:
		return normalizeVars(s.SessionData())
	case Vars:
		return normalizeVars(s)
	case map[string]any:
		return NewVars(s)
	case map[string]string:
		return NewVars(s)
	default:
		return Vars{}
	}
}
