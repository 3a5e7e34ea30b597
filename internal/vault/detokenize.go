package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/config"
)

// RedactionPlainText asks the vault to reveal full plaintext values.
const RedactionPlainText = "PLAIN_TEXT"

// Parameter is one entry of a detokenize call. Index is the position of the
// token in the caller's original list and never leaves the process.
type Parameter struct {
	Token     string `json:"token"`
	Redaction string `json:"redaction"`
	Index     int    `json:"-"`
}

// Request is an ordered detokenize batch built from a token list that may
// contain absent (empty) entries.
type Request struct {
	Parameters []Parameter
	size       int
}

// NewRequest skips empty tokens while remembering each kept token's
// original index.
func NewRequest(tokens []string) Request {
	r := Request{size: len(tokens)}
	for i, t := range tokens {
		if strings.TrimSpace(t) == "" {
			continue
		}
		r.Parameters = append(r.Parameters, Parameter{Token: t, Redaction: RedactionPlainText, Index: i})
	}
	return r
}

type detokenizeBody struct {
	DetokenizationParameters []Parameter `json:"detokenizationParameters"`
	DownloadURL              bool        `json:"downloadURL"`
}

type record struct {
	Token string `json:"token"`
	Value string `json:"value"`
	Error string `json:"error"`
}

type detokenizeResponse struct {
	Records []record `json:"records"`
}

type vaultError struct {
	Error struct {
		HTTPCode int `json:"http_code"`
	} `json:"error"`
}

// Result holds detokenized values. Values is aligned with the non-skipped
// tokens in their original order; Lookup addresses the original positions.
type Result struct {
	Values  []string
	indexes []int
	size    int
}

// Lookup returns the value for the token at original position i. ok is false
// when that token was absent and therefore never detokenized.
func (r *Result) Lookup(i int) (value string, ok bool) {
	if r == nil {
		return "", false
	}
	for n, idx := range r.indexes {
		if idx == i {
			return r.Values[n], true
		}
	}
	return "", false
}

// Len is the length of the original token list.
func (r *Result) Len() int { return r.size }

// Client calls the vault detokenize endpoint.
type Client struct {
	baseURL string
	vaultID string
	tokens  TokenProvider
	http    *http.Client
}

func NewClient(cfg config.VaultConfig, tokens TokenProvider, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		vaultID: cfg.ID,
		tokens:  tokens,
		http:    httpClient,
	}
}

// Endpoint is the detokenize URL of the configured vault.
func (c *Client) Endpoint() string {
	return c.baseURL + "/v1/vaults/" + c.vaultID + "/detokenize"
}

// Detokenize resolves tokens in one batched call. Failures are returned as
// *apperr.Error of kind DetokenizationFailure.
func (c *Client) Detokenize(ctx context.Context, tokens []string, requestID string) (*Result, error) {
	req := NewRequest(tokens)
	result := &Result{size: req.size}
	if len(req.Parameters) == 0 {
		return result, nil
	}

	bearer, err := c.tokens.BearerToken(ctx)
	if err != nil {
		return nil, transportFailure("generate bearer token", err)
	}

	payload, err := json.Marshal(detokenizeBody{DetokenizationParameters: req.Parameters})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "encode detokenize request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "build detokenize request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	if requestID != "" {
		httpReq.Header.Set("x-request-id", requestID)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportFailure("detokenize request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportFailure("read detokenize response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &apperr.Error{
			Kind: apperr.DetokenizationFailure,
			Msg:  fmt.Sprintf("vault returned %d", resp.StatusCode),
			Body: string(body),
		}
		var ve vaultError
		if json.Unmarshal(body, &ve) == nil && ve.Error.HTTPCode != 0 {
			e.Status = ve.Error.HTTPCode
		}
		return nil, e
	}

	var dr detokenizeResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, &apperr.Error{Kind: apperr.DetokenizationFailure, Msg: "decode detokenize response", Body: string(body), Err: err}
	}
	if err := result.match(req.Parameters, dr.Records); err != nil {
		return nil, &apperr.Error{Kind: apperr.DetokenizationFailure, Msg: err.Error(), Body: string(body)}
	}
	return result, nil
}

// match assigns records to parameters. A record that echoes its token is
// matched to the first unassigned parameter with that token; one that does
// not is matched by position.
func (r *Result) match(params []Parameter, records []record) error {
	if len(records) < len(params) {
		return fmt.Errorf("vault returned %d records for %d tokens", len(records), len(params))
	}
	pending := make(map[string][]int, len(params))
	for i, p := range params {
		pending[p.Token] = append(pending[p.Token], i)
	}
	values := make([]string, len(params))
	assigned := make([]bool, len(params))

	for pos, rec := range records[:len(params)] {
		if rec.Error != "" {
			return fmt.Errorf("vault could not detokenize record %d: %s", pos, rec.Error)
		}
		slot := pos
		if rec.Token != "" {
			queue := pending[rec.Token]
			if len(queue) == 0 {
				return fmt.Errorf("vault returned unexpected token at record %d", pos)
			}
			slot, pending[rec.Token] = queue[0], queue[1:]
		}
		if assigned[slot] {
			return fmt.Errorf("vault returned duplicate record for token %d", slot)
		}
		values[slot] = rec.Value
		assigned[slot] = true
	}

	r.Values = values
	r.indexes = make([]int, len(params))
	for i, p := range params {
		r.indexes[i] = p.Index
	}
	return nil
}

func transportFailure(msg string, err error) *apperr.Error {
	quoted, _ := json.Marshal(msg + ": " + err.Error())
	return &apperr.Error{Kind: apperr.DetokenizationFailure, Msg: msg, Body: string(quoted), Err: err}
}
