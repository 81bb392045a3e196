// config.go defines the explicit configuration shared by notices and submitters.

package hoptoad

import (
	"fmt"
	"go/build"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/strongdm/hoptoad-notifier/pkg/logger"
)

// Notifier identity reported in every notice.
const (
	NotifierName    = "Hoptoad Notifier"
	NotifierVersion = "2.0.0"
	NotifierURL     = "http://hoptoadapp.com"
)

// Collector endpoint defaults.
const (
	DefaultHost        = "hoptoadapp.com"
	DefaultPath        = "/notifier_api/v2/notices"
	DefaultOpenTimeout = 2 * time.Second
	DefaultReadTimeout = 5 * time.Second
)

// DefaultParamsFilters and DefaultEnvironmentFilters are always installed by NewConfig.
var (
	DefaultParamsFilters      = []string{"password", "password_confirmation"}
	DefaultEnvironmentFilters = []string{"password", "password_confirmation"}
)

// Config carries everything a notice or a submitter reads.
// It is a plain value: copy it, mutate the copy, pass it on.
type Config struct {
	// APIKey identifies the project at the collector.
	APIKey string

	// Host, Port and Path locate the collector. Port 0 means 80, or 443 when Secure.
	Host   string
	Port   int
	Path   string
	Secure bool

	// Proxy settings. An empty ProxyHost disables the proxy.
	ProxyHost string
	ProxyPort string
	ProxyUser string
	ProxyPass string

	// HTTPOpenTimeout bounds connection setup, HTTPReadTimeout bounds waiting for the response.
	HTTPOpenTimeout time.Duration
	HTTPReadTimeout time.Duration

	// ProjectRoot is rewritten to [PROJECT_ROOT] in backtraces.
	ProjectRoot string

	// EnvironmentName is reported as environment-name (e.g. "production").
	EnvironmentName string

	// LibraryRoots are rewritten to [GEM_ROOT] in backtraces.
	LibraryRoots []string

	// BacktraceFilters run in order over every raw frame before parsing.
	BacktraceFilters []BacktraceFilter

	// ParamsFilters redact request params, session and cgi data keys.
	ParamsFilters []string

	// EnvironmentFilters redact server environment variable keys.
	EnvironmentFilters []string

	// Logger receives submission outcomes.
	Logger logger.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithAPIKey sets the project API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithHost sets the collector host and port.
func WithHost(host string, port int) Option {
	return func(c *Config) {
		c.Host = host
		c.Port = port
	}
}

// WithPath sets the collector path.
func WithPath(path string) Option {
	return func(c *Config) {
		c.Path = path
	}
}

// WithSecure toggles TLS.
func WithSecure(secure bool) Option {
	return func(c *Config) {
		c.Secure = secure
	}
}

// WithProxy routes submissions through an HTTP proxy. user and pass may be empty.
func WithProxy(host, port, user, pass string) Option {
	return func(c *Config) {
		c.ProxyHost = host
		c.ProxyPort = port
		c.ProxyUser = user
		c.ProxyPass = pass
	}
}

// WithTimeouts sets the open and read timeouts. Non-positive values keep the current setting.
func WithTimeouts(open, read time.Duration) Option {
	return func(c *Config) {
		if open > 0 {
			c.HTTPOpenTimeout = open
		}
		if read > 0 {
			c.HTTPReadTimeout = read
		}
	}
}

// WithProjectRoot sets the project root used by the default backtrace filters.
func WithProjectRoot(root string) Option {
	return func(c *Config) {
		c.ProjectRoot = root
	}
}

// WithEnvironmentName sets the reported environment name.
func WithEnvironmentName(name string) Option {
	return func(c *Config) {
		c.EnvironmentName = name
	}
}

// WithLibraryRoots replaces the library roots used by the default backtrace filters.
func WithLibraryRoots(roots ...string) Option {
	return func(c *Config) {
		c.LibraryRoots = roots
	}
}

// WithParamsFilters adds request key patterns to the defaults.
func WithParamsFilters(patterns ...string) Option {
	return func(c *Config) {
		c.ParamsFilters = append(c.ParamsFilters, patterns...)
	}
}

// WithEnvironmentFilters adds environment key patterns to the defaults.
func WithEnvironmentFilters(patterns ...string) Option {
	return func(c *Config) {
		c.EnvironmentFilters = append(c.EnvironmentFilters, patterns...)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// NewConfig returns a Config with defaults, applies opts and then installs the
// default backtrace filters bound to the resulting project and library roots.
func NewConfig(opts ...Option) Config {
	c := Config{
		Host:               DefaultHost,
		Path:               DefaultPath,
		HTTPOpenTimeout:    DefaultOpenTimeout,
		HTTPReadTimeout:    DefaultReadTimeout,
		LibraryRoots:       DefaultLibraryRoots(),
		ParamsFilters:      slices.Clone(DefaultParamsFilters),
		EnvironmentFilters: slices.Clone(DefaultEnvironmentFilters),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Logger == nil {
		c.Logger = defaultLogger()
	}
	c.AddDefaultFilters()
	return c
}

// AddDefaultFilters replaces the backtrace filter chain with the defaults,
// bound to the current ProjectRoot and LibraryRoots.
func (c *Config) AddDefaultFilters() {
	c.BacktraceFilters = DefaultBacktraceFilters(c.ProjectRoot, c.LibraryRoots...)
}

// FilterBacktrace appends f to the backtrace filter chain.
func (c *Config) FilterBacktrace(f BacktraceFilter) {
	c.BacktraceFilters = append(c.BacktraceFilters, f)
}

// URL returns the collector endpoint.
func (c Config) URL() *url.URL {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	return &url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", c.host(), c.port()),
		Path:   path,
	}
}

func (c Config) host() string {
	if c.Host == "" {
		return DefaultHost
	}
	return c.Host
}

func (c Config) port() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.Secure {
		return 443
	}
	return 80
}

// clone copies the slices so later edits to c do not leak into the copy.
func (c Config) clone() Config {
	c.LibraryRoots = slices.Clone(c.LibraryRoots)
	c.BacktraceFilters = slices.Clone(c.BacktraceFilters)
	c.ParamsFilters = slices.Clone(c.ParamsFilters)
	c.EnvironmentFilters = slices.Clone(c.EnvironmentFilters)
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}
	return c
}

// DefaultLibraryRoots returns GOROOT/src and the module cache.
func DefaultLibraryRoots() []string {
	var roots []string
	if goroot := build.Default.GOROOT; goroot != "" {
		roots = append(roots, filepath.Join(goroot, "src"))
	}
	modcache := os.Getenv("GOMODCACHE")
	if modcache == "" && build.Default.GOPATH != "" {
		modcache = filepath.Join(filepath.SplitList(build.Default.GOPATH)[0], "pkg", "mod")
	}
	if modcache != "" {
		roots = append(roots, modcache)
	}
	return roots
}

func defaultLogger() logger.Logger {
	l, err := logger.New(os.Stderr, "info")
	if err != nil {
		return logger.NewNop()
	}
	return l
}
