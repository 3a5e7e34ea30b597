// Package auth builds the PSP-specific authentication material for an
// outbound call: copied inbound headers, a per-call client certificate, or
// an HTTP message signature.
package auth

import (
	"crypto/tls"
	"net/http"

	"github.com/akave-ai/vaultgate/internal/model"
)

// Context is the authentication material attached to one outbound call.
// Certificate is nil unless the PSP requires mutual TLS.
type Context struct {
	Headers     http.Header
	Certificate *tls.Certificate
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{Headers: http.Header{}}
}

// Passthrough copies the first inbound value of each named header into
// ctx. Absent inbound headers stay absent.
func (c *Context) Passthrough(in model.Headers, names ...string) {
	for _, name := range names {
		if v, ok := in.First(name); ok {
			c.Headers.Set(name, v)
		}
	}
}
