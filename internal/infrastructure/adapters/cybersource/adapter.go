// Package cybersource implements the Cybersource adapter: nested JSON card
// fields and an HMAC HTTP message signature over the final body.
package cybersource

import (
	"context"
	"strings"
	"time"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/auth"
	"github.com/akave-ai/vaultgate/internal/codec"
	"github.com/akave-ai/vaultgate/internal/config"
	"github.com/akave-ai/vaultgate/internal/forwarder"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
	"github.com/akave-ai/vaultgate/internal/response"
)

const contentType = "application/json"

const cardPath = "paymentInformation.card"

var tokenPaths = []string{
	"paymentInformation.card.number",
	"paymentInformation.card.expirationMonth",
	"paymentInformation.card.expirationYear",
}

type Adapter struct {
	url    string
	signer *auth.Signer
	deps   adapters.Deps
}

func New(cfg config.CybersourceConfig, deps adapters.Deps) *Adapter {
	origin := "https://" + cfg.RequestHost
	if cfg.BaseURL != "" {
		origin = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Adapter{
		url: origin + cfg.ResourcePath,
		signer: &auth.Signer{
			Host:              cfg.RequestHost,
			ResourcePath:      cfg.ResourcePath,
			MerchantID:        cfg.MerchantID,
			MerchantKeyID:     cfg.MerchantKeyID,
			MerchantSecretKey: cfg.MerchantSecretKey,
			Now:               time.Now,
		},
		deps: deps,
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Info() adapters.TypeInfo { return (&Factory{}).ConfigSpec() }

func (a *Adapter) Profile() response.Profile { return response.JSONProfile }

// URL is the PSP endpoint the adapter posts to.
func (a *Adapter) URL() string { return a.url }

func (a *Adapter) Execute(ctx context.Context, call *adapters.Call) (*forwarder.Response, error) {
	doc, err := codec.ParseJSON(call.Body)
	if err != nil {
		return nil, err
	}

	if err := doc.RequireObject(cardPath); err != nil {
		return nil, err
	}
	tokens := doc.Tokens(tokenPaths)
	call.TokenCount = adapters.CountTokens(tokens)
	if call.TokenCount == 0 {
		return nil, apperr.New(apperr.MalformedPayload, "no card tokens under "+cardPath)
	}
	res, err := a.deps.Vault.Detokenize(ctx, tokens, call.RequestID)
	if err != nil {
		return nil, err
	}
	if err := doc.Splice(tokenPaths, res.Lookup); err != nil {
		return nil, err
	}

	body, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	authCtx := auth.NewContext()
	if err := a.signer.Apply(authCtx, body); err != nil {
		return nil, err
	}
	return a.deps.PSP.Do(ctx, forwarder.Request{
		URL:         a.url,
		ContentType: contentType,
		Body:        body,
		Auth:        authCtx,
	})
}
