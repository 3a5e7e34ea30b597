package model

import (
	"encoding/base64"
	"strings"
)

// Header names read from invocations or written to responses.
const (
	HeaderRequestID       = "X-Request-Id"
	HeaderContentType     = "Content-Type"
	HeaderErrorFromClient = "Error-From-Client"
)

// Headers is a multi-valued header map. Only the first value of any header
// is ever consulted; use First rather than indexing.
type Headers map[string][]string

// First returns the first value of the named header. An exact key match
// wins; otherwise keys are compared case-insensitively.
func (h Headers) First(name string) (string, bool) {
	if vals, ok := h[name]; ok {
		if len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	}
	for k, vals := range h {
		if strings.EqualFold(k, name) && len(vals) > 0 {
			return vals[0], true
		}
	}
	return "", false
}

// Value is First without the presence flag.
func (h Headers) Value(name string) string {
	v, _ := h.First(name)
	return v
}

// Invocation is the inbound payload of one gateway call.
type Invocation struct {
	BodyContent string  `json:"BodyContent"` // base64 encoded request body
	Headers     Headers `json:"Headers"`
}

// Body decodes BodyContent. Padded and unpadded standard base64 are accepted.
func (i Invocation) Body() ([]byte, error) {
	s := strings.TrimSpace(i.BodyContent)
	if s == "" {
		return nil, nil
	}
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// RequestID returns the X-Request-Id header value.
func (i Invocation) RequestID() string {
	return i.Headers.Value(HeaderRequestID)
}

// FunctionResponse is the normalized envelope returned for every invocation.
type FunctionResponse struct {
	BodyBytes  string            `json:"bodyBytes"`
	Headers    map[string]string `json:"headers"`
	StatusCode int               `json:"statusCode"`
}

// ErrorFromClient reports whether the envelope is flagged as a PSP-side failure.
func (r FunctionResponse) ErrorFromClient() bool {
	return r.Headers[HeaderErrorFromClient] == "true"
}
