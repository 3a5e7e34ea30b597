// Package forwarder performs the single outbound PSP call of an invocation.
package forwarder

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/auth"
)

// Request is one outbound PSP call. Auth may be nil.
type Request struct {
	URL         string
	ContentType string
	Body        []byte
	Auth        *auth.Context
}

// Response is whatever the PSP answered, whatever the status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

type Option func(*Forwarder)

// WithTransport sets the base transport. Per-call mTLS transports are
// cloned from it.
func WithTransport(t *http.Transport) Option {
	return func(f *Forwarder) { f.base = t }
}

// WithTimeout sets the client timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(f *Forwarder) { f.timeout = d }
}

// WithRoundTripper wraps every transport used by the forwarder, e.g. with
// an APM round tripper.
func WithRoundTripper(wrap func(http.RoundTripper) http.RoundTripper) Option {
	return func(f *Forwarder) { f.wrap = wrap }
}

// Forwarder sends requests to PSPs. It is safe for concurrent use.
type Forwarder struct {
	base    *http.Transport
	timeout time.Duration
	wrap    func(http.RoundTripper) http.RoundTripper
	shared  *http.Client
}

func New(opts ...Option) *Forwarder {
	f := &Forwarder{}
	for _, opt := range opts {
		opt(f)
	}
	if f.base == nil {
		f.base = http.DefaultTransport.(*http.Transport).Clone()
	}
	f.shared = f.client(f.base)
	return f
}

func (f *Forwarder) client(t http.RoundTripper) *http.Client {
	if f.wrap != nil {
		t = f.wrap(t)
	}
	return &http.Client{Transport: t, Timeout: f.timeout}
}

// Do sends req. Any HTTP status yields a Response; only transport failures
// are errors, of kind UpstreamFailure.
func (f *Forwarder) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "build PSP request")
	}
	if req.Auth != nil {
		for name, values := range req.Auth.Headers {
			if name == auth.HeaderHost {
				if len(values) > 0 {
					httpReq.Host = values[0]
				}
				continue
			}
			httpReq.Header[name] = append([]string(nil), values...)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	client := f.shared
	if req.Auth != nil && req.Auth.Certificate != nil {
		t := f.mutualTLSTransport(*req.Auth.Certificate)
		defer t.CloseIdleConnections()
		client = f.client(t)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, err, "PSP request failed")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, err, "read PSP response")
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// mutualTLSTransport clones the base transport with cert as the client
// certificate. The clone is never reused across calls.
func (f *Forwarder) mutualTLSTransport(cert tls.Certificate) *http.Transport {
	t := f.base.Clone()
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	t.TLSClientConfig.Certificates = []tls.Certificate{cert}
	return t
}
