// Package azul implements the Azul adapter: JSON body, mutual TLS with a
// caller-supplied certificate, header passthrough and a merged expiration
// field.
package azul

import (
	"context"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/auth"
	"github.com/akave-ai/vaultgate/internal/codec"
	"github.com/akave-ai/vaultgate/internal/config"
	"github.com/akave-ai/vaultgate/internal/forwarder"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
	"github.com/akave-ai/vaultgate/internal/response"
)

const contentType = "application/json"

const (
	fieldCardNumber = "CardNumber"
	fieldExpYear    = "ExpirationYear"
	fieldExpMonth   = "ExpirationMonth"
	fieldCVC        = "CVC"
	fieldExpiration = "Expiration"
)

// Token positions in tokenFields.
const (
	idxCardNumber = iota
	idxExpYear
	idxExpMonth
	idxCVC
)

var tokenFields = []string{fieldCardNumber, fieldExpYear, fieldExpMonth, fieldCVC}

var passthroughHeaders = []string{"Auth1", "Auth2"}

type Adapter struct {
	url  string
	deps adapters.Deps
}

func New(cfg config.AzulConfig, deps adapters.Deps) *Adapter {
	return &Adapter{url: cfg.URL, deps: deps}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Info() adapters.TypeInfo { return (&Factory{}).ConfigSpec() }

func (a *Adapter) Profile() response.Profile { return response.JSONProfile }

func (a *Adapter) Execute(ctx context.Context, call *adapters.Call) (*forwarder.Response, error) {
	doc, err := codec.ParseJSON(call.Body)
	if err != nil {
		return nil, err
	}

	authCtx := auth.NewContext()
	if err := authCtx.MutualTLS(call.Headers); err != nil {
		return nil, err
	}

	tokens := doc.Tokens(tokenFields)
	call.TokenCount = adapters.CountTokens(tokens)
	res, err := a.deps.Vault.Detokenize(ctx, tokens, call.RequestID)
	if err != nil {
		return nil, err
	}

	if err := doc.Splice([]string{fieldCardNumber}, func(int) (string, bool) { return res.Lookup(idxCardNumber) }); err != nil {
		return nil, err
	}
	if err := doc.Splice([]string{fieldCVC}, func(int) (string, bool) { return res.Lookup(idxCVC) }); err != nil {
		return nil, err
	}
	month, okMonth := res.Lookup(idxExpMonth)
	year, okYear := res.Lookup(idxExpYear)
	if !okMonth || !okYear {
		return nil, apperr.New(apperr.MalformedPayload, "ExpirationMonth and ExpirationYear tokens are required")
	}
	if err := doc.MergeExpiration(fieldExpMonth, fieldExpYear, fieldExpiration, month, year); err != nil {
		return nil, err
	}

	authCtx.Passthrough(call.Headers, passthroughHeaders...)

	body, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	return a.deps.PSP.Do(ctx, forwarder.Request{
		URL:         a.url,
		ContentType: contentType,
		Body:        body,
		Auth:        authCtx,
	})
}
