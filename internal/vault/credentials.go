package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// TokenProvider issues bearer tokens for vault calls. Implementations must be
// safe for concurrent use.
type TokenProvider interface {
	BearerToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed token.
type StaticToken string

func (t StaticToken) BearerToken(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("empty bearer token")
	}
	return string(t), nil
}

// Credentials is the service account credentials document issued by the vault.
type Credentials struct {
	ClientID   string `json:"clientID"`
	ClientName string `json:"clientName"`
	KeyID      string `json:"keyID"`
	TokenURI   string `json:"tokenURI"`
	PrivateKey string `json:"privateKey"`
}

// ParseCredentials parses the credentials JSON document.
func ParseCredentials(raw string) (*Credentials, error) {
	var c Credentials
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	switch {
	case c.ClientID == "":
		return nil, errors.New("credentials: missing clientID")
	case c.KeyID == "":
		return nil, errors.New("credentials: missing keyID")
	case c.TokenURI == "":
		return nil, errors.New("credentials: missing tokenURI")
	case c.PrivateKey == "":
		return nil, errors.New("credentials: missing privateKey")
	}
	return &c, nil
}

// ServiceAccountProvider exchanges a signed JWT assertion for a bearer token
// on every call. Tokens are deliberately not cached.
type ServiceAccountProvider struct {
	creds  *Credentials
	client *http.Client
	now    func() time.Time
}

// NewServiceAccountProvider builds a provider from the raw credentials JSON.
func NewServiceAccountProvider(raw string, client *http.Client) (*ServiceAccountProvider, error) {
	creds, err := ParseCredentials(raw)
	if err != nil {
		return nil, err
	}
	if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey)); err != nil {
		return nil, fmt.Errorf("credentials: invalid privateKey: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ServiceAccountProvider{creds: creds, client: client, now: time.Now}, nil
}

type assertionClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// Assertion returns the signed JWT presented to the token endpoint.
func (p *ServiceAccountProvider) Assertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(p.creds.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	now := p.now()
	claims := assertionClaims{
		Key: p.creds.KeyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.creds.ClientID,
			Subject:   p.creds.ClientID,
			Audience:  jwt.ClaimStrings{p.creds.TokenURI},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	Assertion string `json:"assertion"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

func (p *ServiceAccountProvider) BearerToken(ctx context.Context) (string, error) {
	assertion, err := p.Assertion()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(tokenRequest{GrantType: jwtBearerGrant, Assertion: assertion})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.creds.TokenURI, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("token endpoint returned no accessToken")
	}
	return tr.AccessToken, nil
}
