package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akave-ai/vaultgate/internal/apperr"
)

const (
	signatureAlgorithm = "HmacSHA256"
	signedHeaders      = "host date request-target digest v-c-merchant-id"
	digestPrefix       = "SHA-256="
)

// Outbound header names written by the signer.
const (
	HeaderHost       = "Host"
	HeaderMerchantID = "V-C-Merchant-Id"
	HeaderDate       = "Date"
	HeaderDigest     = "Digest"
	HeaderSignature  = "Signature"
)

// Signer produces HTTP message signatures over a JSON request body using a
// shared merchant secret. Now defaults to time.Now.
type Signer struct {
	Host              string
	ResourcePath      string
	MerchantID        string
	MerchantKeyID     string
	MerchantSecretKey string // base64
	Now               func() time.Time
}

// Signature is the set of values derived for one request.
type Signature struct {
	Date   string
	Digest string // with the SHA-256= prefix
	Header string
}

// Digest returns base64(SHA-256(body)).
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// FormatDate renders t in the RFC 1123 GMT form used by the Date header.
func FormatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// CanonicalString is the string the signature is computed over.
func (s *Signer) CanonicalString(date, digest string) string {
	return strings.Join([]string{
		"host: " + s.Host,
		"date: " + date,
		"request-target: post " + s.ResourcePath,
		"digest: " + digestPrefix + digest,
		"v-c-merchant-id: " + s.MerchantID,
	}, "\n")
}

// SignAt signs body as of date. It is deterministic.
func (s *Signer) SignAt(body []byte, date string) (Signature, error) {
	key, err := base64.StdEncoding.DecodeString(s.MerchantSecretKey)
	if err != nil {
		return Signature{}, apperr.Wrap(apperr.Internal, err, "decode merchant secret key")
	}
	digest := Digest(body)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(s.CanonicalString(date, digest)))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return Signature{
		Date:   date,
		Digest: digestPrefix + digest,
		Header: fmt.Sprintf(`keyid="%s", algorithm="%s", headers="%s", signature="%s"`,
			s.MerchantKeyID, signatureAlgorithm, signedHeaders, sig),
	}, nil
}

// Sign signs body with the current time.
func (s *Signer) Sign(body []byte) (Signature, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.SignAt(body, FormatDate(now()))
}

// Apply signs body and writes the signature headers into c. The body must
// be the exact bytes that will be sent.
func (s *Signer) Apply(c *Context, body []byte) error {
	sig, err := s.Sign(body)
	if err != nil {
		return err
	}
	c.Headers.Set(HeaderHost, s.Host)
	c.Headers.Set(HeaderMerchantID, s.MerchantID)
	c.Headers.Set(HeaderDate, sig.Date)
	c.Headers.Set(HeaderDigest, sig.Digest)
	c.Headers.Set(HeaderSignature, sig.Header)
	return nil
}
