// Package fetch is the HTTP collaborator shared by every retrieval strategy:
// per-request timeouts, optional browser headers, and error-kind
// classification so callers can log SSL and timeout failures distinctly.
package fetch

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// userAgent mirrors a desktop browser; several scraped sites refuse the Go
// default agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/75.0.3770.142 Safari/537.36"

// ErrorKind classifies a fetch failure for logging and handling.
type ErrorKind int

const (
	ErrOther ErrorKind = iota
	ErrSSL
	ErrTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSSL:
		return "ssl"
	case ErrTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// Classify maps an error from Get onto its kind.
func Classify(err error) ErrorKind {
	var certErr *x509.CertificateInvalidError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return ErrSSL
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return ErrTimeout
	}
	return ErrOther
}

// Client wraps http.Client with the shared defaults.
type Client struct {
	http *http.Client
}

// NewClient builds a client with the per-request timeout applied to every
// call. There is no pipeline-level timeout; a stuck request blocks only its
// own source.
func NewClient(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Options shape a single GET.
type Options struct {
	BrowserHeaders bool              // Present a desktop browser user agent
	Headers        map[string]string // Extra headers, applied after defaults
}

// Get fetches url and returns the status code and body. Non-2xx statuses are
// returned to the caller, not converted to errors; strategies differ in what
// they accept.
func (c *Client) Get(ctx context.Context, rawURL string, opts Options) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}
	if opts.BrowserHeaders {
		req.Header.Set("User-Agent", userAgent)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read body from %s: %w", rawURL, err)
	}
	return resp.StatusCode, body, nil
}
