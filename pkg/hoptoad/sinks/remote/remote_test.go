package remote

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad"
	"github.com/strongdm/hoptoad-notifier/pkg/logger/mocks"
)

const timeoutMessage = "Timeout while contacting the Hoptoad server."

type post struct {
	path        string
	contentType string
	body        []byte
}

// fakeClient records posts and replies with a canned response or error.
type fakeClient struct {
	mu    sync.Mutex
	posts []post
	resp  *Response
	err   error
}

func (c *fakeClient) Post(ctx context.Context, path, contentType string, body []byte) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append(c.posts, post{path: path, contentType: contentType, body: body})
	return c.resp, c.err
}

func factoryFor(client Client, seen *[]Connection) ClientFactory {
	return func(conn Connection) Client {
		if seen != nil {
			*seen = append(*seen, conn)
		}
		return client
	}
}

func testNotice(cfg hoptoad.Config) *hoptoad.Notice {
	n := hoptoad.NewNotice(cfg)
	n.SetException(hoptoad.NewException("RuntimeError", "OMG", []string{"app/models/user.rb:13:in `value'"}))
	return n
}

func TestSubmit_PassesConnectionSettingsToFactory(t *testing.T) {
	log := &mocks.Logger{}
	log.On("Info", mock.Anything).Return()

	cfg := hoptoad.NewConfig(
		hoptoad.WithLogger(log),
		hoptoad.WithAPIKey("key"),
		hoptoad.WithHost("collector.example.com", 8443),
		hoptoad.WithSecure(true),
		hoptoad.WithProxy("proxy.local", "3128", "user", "secret"),
		hoptoad.WithTimeouts(3*time.Second, 7*time.Second),
	)

	var seen []Connection
	client := &fakeClient{resp: &Response{StatusCode: 200, Status: "200 OK"}}
	s := NewSubmitter(cfg, WithClientFactory(factoryFor(client, &seen)))

	s.Submit(context.Background(), testNotice(cfg))

	require.Len(t, seen, 1)
	assert.Equal(t, Connection{
		Host:        "collector.example.com",
		Port:        8443,
		Secure:      true,
		ProxyHost:   "proxy.local",
		ProxyPort:   "3128",
		ProxyUser:   "user",
		ProxyPass:   "secret",
		OpenTimeout: 3 * time.Second,
		ReadTimeout: 7 * time.Second,
	}, seen[0])
}

func TestSubmit_PostsXMLToPath(t *testing.T) {
	log := &mocks.Logger{}
	log.On("Info", "Success: 200 OK").Return().Once()

	cfg := hoptoad.NewConfig(hoptoad.WithLogger(log), hoptoad.WithAPIKey("key"))
	client := &fakeClient{resp: &Response{StatusCode: 200, Status: "200 OK"}}
	s := NewSubmitter(cfg, WithClientFactory(factoryFor(client, nil)))

	notice := testNotice(cfg)
	resp := s.Submit(context.Background(), notice)

	require.NotNil(t, resp)
	assert.True(t, resp.Success())
	require.Len(t, client.posts, 1)
	assert.Equal(t, hoptoad.DefaultPath, client.posts[0].path)
	assert.Equal(t, hoptoad.ContentType, client.posts[0].contentType)

	want, err := notice.ToXML()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(client.posts[0].body))
	log.AssertExpectations(t)
}

func TestSubmit_NonSuccessStatusLogsFailure(t *testing.T) {
	log := &mocks.Logger{}
	log.On("Error", "Failure: 422 Unprocessable Entity").Return().Once()

	cfg := hoptoad.NewConfig(hoptoad.WithLogger(log))
	client := &fakeClient{resp: &Response{StatusCode: 422, Status: "422 Unprocessable Entity"}}
	s := NewSubmitter(cfg, WithClientFactory(factoryFor(client, nil)))

	resp := s.Submit(context.Background(), testNotice(cfg))

	require.NotNil(t, resp)
	assert.False(t, resp.Success())
	assert.Equal(t, 422, resp.StatusCode)
	log.AssertExpectations(t)
	log.AssertNotCalled(t, "Info", mock.Anything)
}

func TestSubmit_TimeoutLogsOnceAndReturnsNil(t *testing.T) {
	cases := map[string]error{
		"context deadline": context.DeadlineExceeded,
		"wrapped deadline": &url.Error{Op: "Post", URL: "http://x", Err: context.DeadlineExceeded},
		"net timeout":      timeoutErr{},
	}
	for name, cause := range cases {
		t.Run(name, func(t *testing.T) {
			log := &mocks.Logger{}
			log.On("Error", timeoutMessage).Return()

			cfg := hoptoad.NewConfig(hoptoad.WithLogger(log))
			s := NewSubmitter(cfg, WithClientFactory(factoryFor(&fakeClient{err: cause}, nil)))

			resp := s.Submit(context.Background(), testNotice(cfg))

			assert.Nil(t, resp)
			log.AssertNumberOfCalls(t, "Error", 1)
			log.AssertNotCalled(t, "Info", mock.Anything)
		})
	}
}

func TestSubmit_TransportErrorReturnsNil(t *testing.T) {
	log := &mocks.Logger{}
	log.On("Error", "Failure contacting the Hoptoad server: connection refused").Return().Once()

	cfg := hoptoad.NewConfig(hoptoad.WithLogger(log))
	s := NewSubmitter(cfg, WithClientFactory(factoryFor(&fakeClient{err: errors.New("connection refused")}, nil)))

	assert.Nil(t, s.Submit(context.Background(), testNotice(cfg)))
	log.AssertExpectations(t)
}

func TestWrite_ClassifiesOutcome(t *testing.T) {
	log := &mocks.Logger{}
	log.On("Info", mock.Anything).Return()
	log.On("Error", mock.Anything).Return()
	cfg := hoptoad.NewConfig(hoptoad.WithLogger(log))

	ok := NewSubmitter(cfg, WithClientFactory(factoryFor(&fakeClient{resp: &Response{StatusCode: 201}}, nil)))
	assert.NoError(t, ok.Write(context.Background(), testNotice(cfg)))

	rejected := NewSubmitter(cfg, WithClientFactory(factoryFor(&fakeClient{resp: &Response{StatusCode: 500}}, nil)))
	assert.ErrorIs(t, rejected.Write(context.Background(), testNotice(cfg)), ErrRejected)

	lost := NewSubmitter(cfg, WithClientFactory(factoryFor(&fakeClient{err: context.DeadlineExceeded}, nil)))
	assert.ErrorIs(t, lost.Write(context.Background(), testNotice(cfg)), ErrNotDelivered)

	assert.NoError(t, ok.Flush(context.Background()))
	assert.NoError(t, ok.Close())
}

func TestConnection_URLs(t *testing.T) {
	conn := Connection{Host: "example.com", Port: 443, Secure: true}
	assert.Equal(t, "https://example.com:443", conn.BaseURL())
	assert.Empty(t, conn.ProxyURL())

	conn.ProxyHost = "proxy"
	conn.ProxyPort = "8080"
	assert.Equal(t, "http://proxy:8080", conn.ProxyURL())

	conn.ProxyUser = "u"
	conn.ProxyPass = "p"
	assert.Equal(t, "http://u:p@proxy:8080", conn.ProxyURL())
}

func TestSubmit_EndToEnd(t *testing.T) {
	var (
		gotPath, gotType string
		gotBody          []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	host, port := splitServer(t, server.URL)
	log := &mocks.Logger{}
	log.On("Info", "Success: 200 OK").Return().Once()

	cfg := hoptoad.NewConfig(hoptoad.WithLogger(log), hoptoad.WithHost(host, port), hoptoad.WithAPIKey("key"))
	resp := NewSubmitter(cfg).Submit(context.Background(), testNotice(cfg))

	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, hoptoad.DefaultPath, gotPath)
	assert.Equal(t, hoptoad.ContentType, gotType)
	assert.Contains(t, string(gotBody), "<api-key>key</api-key>")
	log.AssertExpectations(t)
}

func TestSubmit_ReleasesConnections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	host, port := splitServer(t, server.URL)
	log := &mocks.Logger{}
	log.On("Info", mock.Anything).Return()

	cfg := hoptoad.NewConfig(hoptoad.WithLogger(log), hoptoad.WithHost(host, port))
	s := NewSubmitter(cfg)

	before := runtime.NumGoroutine()
	for i := 0; i < 30; i++ {
		require.NotNil(t, s.Submit(context.Background(), testNotice(cfg)))
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+5
	}, 2*time.Second, 20*time.Millisecond, "goroutines grew from %d to %d", before, runtime.NumGoroutine())
}

func TestSubmit_RoutesThroughProxy(t *testing.T) {
	var (
		mu        sync.Mutex
		gotAuth   string
		gotTarget string
	)
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotAuth = r.Header.Get("Proxy-Authorization")
		gotTarget = r.URL.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer proxy.Close()

	proxyHost, proxyPort := splitServer(t, proxy.URL)
	log := &mocks.Logger{}
	log.On("Info", "Success: 200 OK").Return().Once()

	cfg := hoptoad.NewConfig(
		hoptoad.WithLogger(log),
		hoptoad.WithHost("collector.invalid", 8080),
		hoptoad.WithProxy(proxyHost, strconv.Itoa(proxyPort), "user", "secret"),
	)
	resp := NewSubmitter(cfg).Submit(context.Background(), testNotice(cfg))

	require.NotNil(t, resp)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("user:secret")), gotAuth)
	assert.Equal(t, "http://collector.invalid:8080"+hoptoad.DefaultPath, gotTarget)
	log.AssertExpectations(t)
}

func TestNewRestyClient_Transport(t *testing.T) {
	client := NewRestyClient(Connection{
		Host:        "example.com",
		Port:        443,
		Secure:      true,
		OpenTimeout: time.Second,
		ReadTimeout: 3 * time.Second,
	}).(*restyClient)

	transport, ok := client.client.GetClient().Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.DisableKeepAlives)
	assert.Equal(t, time.Second, transport.TLSHandshakeTimeout)
	assert.Equal(t, 3*time.Second, transport.ResponseHeaderTimeout)
	require.NotNil(t, transport.TLSClientConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), transport.TLSClientConfig.MinVersion)
	assert.Equal(t, 4*time.Second, client.client.GetClient().Timeout)
}

func TestSubmit_EndToEndTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	host, port := splitServer(t, server.URL)
	log := &mocks.Logger{}
	log.On("Error", timeoutMessage).Return().Once()

	cfg := hoptoad.NewConfig(
		hoptoad.WithLogger(log),
		hoptoad.WithHost(host, port),
		hoptoad.WithTimeouts(time.Second, 50*time.Millisecond),
	)
	resp := NewSubmitter(cfg).Submit(context.Background(), testNotice(cfg))

	assert.Nil(t, resp)
	log.AssertExpectations(t)
}

func splitServer(t *testing.T, raw string) (string, int) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
