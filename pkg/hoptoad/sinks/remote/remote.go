// Package remote delivers notices to the collector over HTTP.
//
// Submit renders the notice to XML, POSTs it once and classifies the
// outcome: 2xx is logged at info, anything else at error. Timeouts and
// transport failures are logged at error and yield a nil *Response; they are
// never returned to the caller as errors.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad"
	"github.com/strongdm/hoptoad-notifier/pkg/logger"
)

var (
	// ErrNotDelivered is returned by Write when no response was received.
	ErrNotDelivered = errors.New("notice not delivered")

	// ErrRejected is returned by Write when the collector answered with a non-2xx status.
	ErrRejected = errors.New("notice rejected by collector")
)

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithClientFactory replaces the HTTP client constructor.
func WithClientFactory(f ClientFactory) SubmitterOption {
	return func(s *Submitter) {
		if f != nil {
			s.newClient = f
		}
	}
}

// Submitter posts notices to the collector described by its Config.
// It is safe for concurrent use; every Submit opens its own client.
type Submitter struct {
	cfg       hoptoad.Config
	logger    logger.Logger
	newClient ClientFactory
}

var _ hoptoad.Sink = (*Submitter)(nil)

// NewSubmitter creates a Submitter for cfg.
func NewSubmitter(cfg hoptoad.Config, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		cfg:       cfg,
		logger:    cfg.Logger,
		newClient: NewRestyClient,
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connection returns the connection settings taken from the Config.
func (s *Submitter) Connection() Connection {
	u := s.cfg.URL()
	port, _ := strconv.Atoi(u.Port())
	return Connection{
		Host:        u.Hostname(),
		Port:        port,
		Secure:      s.cfg.Secure,
		ProxyHost:   s.cfg.ProxyHost,
		ProxyPort:   s.cfg.ProxyPort,
		ProxyUser:   s.cfg.ProxyUser,
		ProxyPass:   s.cfg.ProxyPass,
		OpenTimeout: s.cfg.HTTPOpenTimeout,
		ReadTimeout: s.cfg.HTTPReadTimeout,
	}
}

// Submit posts the notice once. It returns nil when the notice could not be
// rendered or no response arrived (timeout or transport failure).
func (s *Submitter) Submit(ctx context.Context, notice *hoptoad.Notice) *Response {
	if notice == nil {
		return nil
	}
	body, err := notice.ToXML()
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to render notice %s: %s", notice.ID, err))
		return nil
	}

	client := s.newClient(s.Connection())
	resp, err := client.Post(ctx, s.cfg.URL().Path, hoptoad.ContentType, body)
	if err != nil {
		if isTimeout(err) {
			s.logger.Error("Timeout while contacting the Hoptoad server.")
		} else {
			s.logger.Error(fmt.Sprintf("Failure contacting the Hoptoad server: %s", err))
		}
		return nil
	}

	if resp.Success() {
		s.logger.Info(fmt.Sprintf("Success: %s", statusText(resp)))
	} else {
		s.logger.Error(fmt.Sprintf("Failure: %s", statusText(resp)))
	}
	return resp
}

// Write implements hoptoad.Sink on top of Submit.
func (s *Submitter) Write(ctx context.Context, notice *hoptoad.Notice) error {
	resp := s.Submit(ctx, notice)
	switch {
	case notice == nil:
		return nil
	case resp == nil:
		return ErrNotDelivered
	case !resp.Success():
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	default:
		return nil
	}
}

// Flush is a no-op; submissions are synchronous.
func (s *Submitter) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Submitter) Close() error {
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusText(resp *Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprint(resp.StatusCode)
}
