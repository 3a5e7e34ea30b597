// Package adapters defines the PSP adapter contract and the registry that
// builds adapters from configuration. Each PSP lives in its own package and
// registers a Factory.
package adapters

import (
	"context"

	"github.com/akave-ai/vaultgate/internal/forwarder"
	"github.com/akave-ai/vaultgate/internal/model"
	"github.com/akave-ai/vaultgate/internal/response"
	"github.com/akave-ai/vaultgate/internal/vault"
)

// Adapter runs the PSP-specific part of an invocation: extract tokens,
// detokenize, splice, authenticate and forward.
type Adapter interface {
	Name() string
	Info() TypeInfo
	Profile() response.Profile
	// Execute returns the PSP response, or an *apperr.Error describing the
	// step that failed.
	Execute(ctx context.Context, call *Call) (*forwarder.Response, error)
}

// Call is one invocation as seen by an adapter. Body is already decoded
// and non-empty. TokenCount is set by the adapter to the number of tokens
// sent to the vault.
type Call struct {
	RequestID  string
	Headers    model.Headers
	Body       []byte
	TokenCount int
}

// Detokenizer resolves vault tokens. *vault.Client implements it.
type Detokenizer interface {
	Detokenize(ctx context.Context, tokens []string, requestID string) (*vault.Result, error)
}

// Sender performs the outbound PSP call. *forwarder.Forwarder implements it.
type Sender interface {
	Do(ctx context.Context, req forwarder.Request) (*forwarder.Response, error)
}

// Deps are the shared clients handed to every adapter.
type Deps struct {
	Vault Detokenizer
	PSP   Sender
}

// CountTokens returns the number of non-blank tokens, i.e. the number the
// vault will be asked to resolve.
func CountTokens(tokens []string) int {
	return len(vault.NewRequest(tokens).Parameters)
}
