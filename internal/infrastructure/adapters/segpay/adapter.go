// Package segpay implements the Segpay adapter: a form-urlencoded body whose
// XMLData field carries the card attributes.
package segpay

import (
	"context"
	"net/http"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/codec"
	"github.com/akave-ai/vaultgate/internal/config"
	"github.com/akave-ai/vaultgate/internal/forwarder"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
	"github.com/akave-ai/vaultgate/internal/response"
)

const (
	requestContentType  = "application/x-www-form-urlencoded"
	responseContentType = "text/xml"

	xmlField       = "XMLData"
	elementPath    = "data/authrequest"
	attrCardNumber = "CardNumber"
	attrCVV        = "CVV"
	attrExpDate    = "ExpDate"
)

var tokenAttrs = []string{attrCardNumber, attrCVV, attrExpDate}

var profile = response.Profile{
	ContentType:      responseContentType,
	RawUpstreamBody:  true,
	DetokenizeStatus: http.StatusInternalServerError,
}

type Adapter struct {
	url  string
	deps adapters.Deps
}

func New(cfg config.SegpayConfig, deps adapters.Deps) *Adapter {
	return &Adapter{url: cfg.AuthURL, deps: deps}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Info() adapters.TypeInfo { return (&Factory{}).ConfigSpec() }

func (a *Adapter) Profile() response.Profile { return profile }

func (a *Adapter) Execute(ctx context.Context, call *adapters.Call) (*forwarder.Response, error) {
	form, err := codec.ParseFormXML(call.Body, xmlField)
	if err != nil {
		return nil, err
	}
	tokens, err := form.XML.Attrs(elementPath, tokenAttrs)
	if err != nil {
		return nil, err
	}

	call.TokenCount = adapters.CountTokens(tokens)
	if call.TokenCount == 0 {
		return nil, apperr.Newf(apperr.MalformedPayload, "no card tokens on %s", elementPath)
	}
	res, err := a.deps.Vault.Detokenize(ctx, tokens, call.RequestID)
	if err != nil {
		return nil, err
	}
	if err := form.XML.SpliceAttrs(elementPath, tokenAttrs, res.Lookup); err != nil {
		return nil, err
	}

	return a.deps.PSP.Do(ctx, forwarder.Request{
		URL:         a.url,
		ContentType: requestContentType,
		Body:        []byte(form.Encode()),
	})
}
