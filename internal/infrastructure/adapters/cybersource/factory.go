package cybersource

import (
	"github.com/akave-ai/vaultgate/internal/config"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
)

// Name is the adapter name used in routes.
const Name = "cybersource"

// Factory creates the Cybersource adapter. Registers as "cybersource".
type Factory struct{}

func (f *Factory) Name() string {
	return Name
}

func (f *Factory) ConfigSpec() adapters.TypeInfo {
	return adapters.TypeInfo{
		Name:        Name,
		Description: "Cybersource REST payments. Detokenizes paymentInformation.card number and expiration, then signs the body with an HMAC-SHA256 HTTP signature.",
		Auth:        "http-signature",
		ContentType: contentType,
		Tokens:      tokenPaths,
		Headers:     []string{"X-Request-Id"},
		Fields: []adapters.ConfigField{
			{Name: "adapters.cybersource.request_host", Type: "string", Required: true, Description: "PSP host, signed as the host header", Example: "apitest.cybersource.com"},
			{Name: "adapters.cybersource.resource_path", Type: "string", Required: true, Description: "Request path, signed as the request target", Example: "/pts/v2/payments"},
			{Name: "adapters.cybersource.merchant_id", Type: "string", Required: true, Description: "Merchant id, sent as v-c-merchant-id"},
			{Name: "adapters.cybersource.merchant_key_id", Type: "string", Required: true, Description: "Shared secret key id"},
			{Name: "adapters.cybersource.merchant_secret_key", Type: "string", Required: true, Secret: true, Description: "Base64 shared secret"},
			{Name: "adapters.cybersource.base_url", Type: "string", Required: false, Description: "Overrides https://{request_host} as the target origin", Example: "http://localhost:8081"},
		},
	}
}

func (f *Factory) Configured(cfg *config.Config) bool {
	return cfg.Adapters.Cybersource != nil
}

func (f *Factory) Create(cfg *config.Config, deps adapters.Deps) (adapters.Adapter, error) {
	return New(*cfg.Adapters.Cybersource, deps), nil
}
