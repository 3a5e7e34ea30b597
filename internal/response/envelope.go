package response

import (
	"net/http"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/codec"
	"github.com/akave-ai/vaultgate/internal/forwarder"
	"github.com/akave-ai/vaultgate/internal/model"
)

// BadRequestBody is the body returned for an invocation without a body.
const BadRequestBody = "Bad request"

const (
	contentTypeJSON = "application/json"
	flagTrue        = "true"
	flagFalse       = "false"
)

// Profile describes how one PSP adapter shapes its envelopes.
type Profile struct {
	// ContentType replaces the default on envelopes built from a PSP
	// response or PSP transport failure. Empty keeps application/json.
	ContentType string
	// RawUpstreamBody returns PSP bodies unchanged instead of as JSON text.
	RawUpstreamBody bool
	// DetokenizeStatus is the status of a vault failure that carries no
	// usable http_code. Zero means 500.
	DetokenizeStatus int
	// UseVaultHTTPCode takes the vault failure status from the vault's
	// error.http_code when present.
	UseVaultHTTPCode bool
}

// JSONProfile is the profile of JSON PSPs.
var JSONProfile = Profile{UseVaultHTTPCode: true}

// New returns the default envelope: 200, JSON, Error-From-Client false.
func New() model.FunctionResponse {
	return model.FunctionResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			model.HeaderContentType:     contentTypeJSON,
			model.HeaderErrorFromClient: flagFalse,
		},
	}
}

// Classify builds the envelope for an invocation outcome: either the PSP
// response or the error that stopped the pipeline.
func Classify(p Profile, upstream *forwarder.Response, err error) model.FunctionResponse {
	fr := New()
	if err != nil {
		return classifyError(p, fr, err)
	}
	if upstream == nil {
		fr.StatusCode = http.StatusInternalServerError
		fr.BodyBytes = codec.Quote("no response from payment processor")
		return fr
	}

	p.applyContentType(fr)
	fr.StatusCode = upstream.StatusCode
	if p.RawUpstreamBody {
		fr.BodyBytes = string(upstream.Body)
	} else {
		fr.BodyBytes = codec.Stringify(upstream.Body)
	}
	if !upstream.OK() {
		fr.Headers[model.HeaderErrorFromClient] = flagTrue
	}
	return fr
}

func classifyError(p Profile, fr model.FunctionResponse, err error) model.FunctionResponse {
	e, ok := apperr.As(err)
	if !ok {
		fr.StatusCode = http.StatusInternalServerError
		fr.BodyBytes = codec.Quote(err.Error())
		return fr
	}

	switch e.Kind {
	case apperr.BadRequest:
		fr.StatusCode = http.StatusBadRequest
		fr.BodyBytes = e.Msg
	case apperr.DetokenizationFailure:
		fr.StatusCode = p.detokenizeStatus(e.Status)
		fr.BodyBytes = e.Body
		if fr.BodyBytes == "" {
			fr.BodyBytes = codec.Quote(e.Msg)
		}
	case apperr.UpstreamFailure:
		p.applyContentType(fr)
		fr.StatusCode = http.StatusBadGateway
		fr.BodyBytes = codec.Quote(apperr.Message(e))
		fr.Headers[model.HeaderErrorFromClient] = flagTrue
	default:
		fr.StatusCode = http.StatusInternalServerError
		fr.BodyBytes = codec.Quote(apperr.Message(e))
	}
	return fr
}

func (p Profile) detokenizeStatus(vaultCode int) int {
	if p.UseVaultHTTPCode && vaultCode >= 100 && vaultCode <= 599 {
		return vaultCode
	}
	if p.DetokenizeStatus != 0 {
		return p.DetokenizeStatus
	}
	return http.StatusInternalServerError
}

func (p Profile) applyContentType(fr model.FunctionResponse) {
	if p.ContentType != "" {
		fr.Headers[model.HeaderContentType] = p.ContentType
	}
}

// Panic builds the envelope for a recovered panic.
func Panic(recovered any) model.FunctionResponse {
	fr := New()
	fr.StatusCode = http.StatusInternalServerError
	fr.BodyBytes = codec.Quote(panicMessage(recovered))
	return fr
}

func panicMessage(v any) string {
	switch x := v.(type) {
	case error:
		return x.Error()
	case string:
		return x
	default:
		return "internal error"
	}
}
