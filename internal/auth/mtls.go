package auth

import (
	"crypto/tls"
	"encoding/json"
	"strings"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/model"
)

// Inbound headers carrying the PEM client certificate and key.
const (
	HeaderCert = "Cert"
	HeaderKey  = "Key"
)

const missingCertMsg = "Bad request. Required headers 'cert' and 'key' for MTLS with Azul are missing."

// MutualTLS reads the client certificate and key from the inbound headers
// and attaches the resulting key pair to c. Header values are JSON string
// bodies, so escaped newlines ("\n") are unescaped before PEM decoding.
func (c *Context) MutualTLS(in model.Headers) error {
	certStr, okCert := in.First(HeaderCert)
	keyStr, okKey := in.First(HeaderKey)
	if !okCert || !okKey || certStr == "" || keyStr == "" {
		return apperr.New(apperr.BadRequest, missingCertMsg)
	}

	certPEM, err := unescape(certStr)
	if err != nil {
		return apperr.Wrap(apperr.BadRequest, err, "Bad request. Header 'cert' is not a valid escaped string")
	}
	keyPEM, err := unescape(keyStr)
	if err != nil {
		return apperr.Wrap(apperr.BadRequest, err, "Bad request. Header 'key' is not a valid escaped string")
	}

	pair, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return apperr.Wrap(apperr.BadRequest, err, "Bad request. Invalid client certificate or key")
	}
	c.Certificate = &pair
	return nil
}

// unescape decodes s as the body of a JSON string literal. Values that
// already contain real line breaks are returned unchanged.
func unescape(s string) (string, error) {
	if strings.Contains(s, "\n") {
		return s, nil
	}
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return "", err
	}
	return out, nil
}
