package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Connection is everything needed to open a client to the collector.
type Connection struct {
	Host   string
	Port   int
	Secure bool

	ProxyHost string
	ProxyPort string
	ProxyUser string
	ProxyPass string

	OpenTimeout time.Duration
	ReadTimeout time.Duration
}

// BaseURL returns scheme://host:port.
func (c Connection) BaseURL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(c.Host, fmt.Sprint(c.Port)))
}

// ProxyURL returns the proxy URL with credentials, or "" when no proxy is set.
func (c Connection) ProxyURL() string {
	if c.ProxyHost == "" {
		return ""
	}
	host := c.ProxyHost
	if c.ProxyPort != "" {
		host = net.JoinHostPort(c.ProxyHost, c.ProxyPort)
	}
	u := &url.URL{Scheme: "http", Host: host}
	switch {
	case c.ProxyUser != "" && c.ProxyPass != "":
		u.User = url.UserPassword(c.ProxyUser, c.ProxyPass)
	case c.ProxyUser != "":
		u.User = url.User(c.ProxyUser)
	}
	return u.String()
}

// Client posts a rendered notice and reports the response status.
type Client interface {
	Post(ctx context.Context, path, contentType string, body []byte) (*Response, error)
}

// ClientFactory opens a Client for a Connection.
type ClientFactory func(conn Connection) Client

// Response is the classified outcome of a delivered POST.
type Response struct {
	StatusCode int
	Status     string
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// NewRestyClient is the default ClientFactory. The open timeout bounds
// dialing and the TLS handshake, the read timeout bounds waiting for
// response headers, and their sum caps the whole exchange. Each client
// makes one POST, so connections are closed after the response.
func NewRestyClient(conn Connection) Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: conn.OpenTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   conn.OpenTimeout,
		ResponseHeaderTimeout: conn.ReadTimeout,
		DisableKeepAlives:     true,
	}

	client := resty.New().
		SetTransport(transport).
		SetBaseURL(conn.BaseURL()).
		SetTimeout(conn.OpenTimeout + conn.ReadTimeout)

	if proxy := conn.ProxyURL(); proxy != "" {
		client.SetProxy(proxy)
	}
	if conn.Secure {
		client.SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	return &restyClient{client: client}
}

type restyClient struct {
	client *resty.Client
}

func (c *restyClient) Post(ctx context.Context, path, contentType string, body []byte) (*Response, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode(), Status: resp.Status()}, nil
}
