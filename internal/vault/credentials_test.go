package vault

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(t *testing.T, tokenURI string) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	raw, err := json.Marshal(Credentials{
		ClientID:   "client-1",
		ClientName: "gateway",
		KeyID:      "key-1",
		TokenURI:   tokenURI,
		PrivateKey: string(pemKey),
	})
	require.NoError(t, err)
	return string(raw), key
}

func TestServiceAccountProvider_BearerToken(t *testing.T) {
	var pub *rsa.PublicKey
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, jwtBearerGrant, req.GrantType)

		claims := &assertionClaims{}
		tok, err := jwt.ParseWithClaims(req.Assertion, claims, func(*jwt.Token) (any, error) { return pub, nil },
			jwt.WithValidMethods([]string{"RS256"}))
		if !assert.NoError(t, err) || !assert.True(t, tok.Valid) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "client-1", claims.Issuer)
		assert.Equal(t, "client-1", claims.Subject)
		assert.Equal(t, "key-1", claims.Key)

		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "access-123", "tokenType": "Bearer"})
	}))
	defer srv.Close()

	raw, key := testCredentials(t, srv.URL+"/v1/auth/sa/oauth/token")
	pub = &key.PublicKey

	p, err := NewServiceAccountProvider(raw, srv.Client())
	require.NoError(t, err)

	got, err := p.BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-123", got)
}

func TestServiceAccountProvider_TokenEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	raw, _ := testCredentials(t, srv.URL)
	p, err := NewServiceAccountProvider(raw, nil)
	require.NoError(t, err)

	_, err = p.BearerToken(context.Background())
	assert.ErrorContains(t, err, "401")
}

func TestParseCredentials_Invalid(t *testing.T) {
	_, err := ParseCredentials("not json")
	assert.Error(t, err)

	_, err = ParseCredentials(`{"clientID":"c","keyID":"k","tokenURI":"https://x"}`)
	assert.ErrorContains(t, err, "privateKey")

	_, err = NewServiceAccountProvider(`{"clientID":"c","keyID":"k","tokenURI":"https://x","privateKey":"nope"}`, nil)
	assert.ErrorContains(t, err, "invalid privateKey")
}

func TestStaticToken(t *testing.T) {
	got, err := StaticToken("abc").BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = StaticToken("").BearerToken(context.Background())
	assert.Error(t, err)
}
