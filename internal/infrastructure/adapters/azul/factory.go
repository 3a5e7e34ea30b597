package azul

import (
	"github.com/akave-ai/vaultgate/internal/config"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
)

// Name is the adapter name used in routes.
const Name = "azul"

// Factory creates the Azul adapter. Registers as "azul".
type Factory struct{}

func (f *Factory) Name() string {
	return Name
}

func (f *Factory) ConfigSpec() adapters.TypeInfo {
	return adapters.TypeInfo{
		Name:        Name,
		Description: "Azul payments. Detokenizes card number, expiration and CVC, merges expiration month and year into Expiration (YYYYMM) and calls the PSP over mutual TLS with the caller's certificate.",
		Auth:        "mtls+headers",
		ContentType: contentType,
		Tokens:      tokenFields,
		Headers:     []string{"Cert", "Key", "Auth1", "Auth2", "X-Request-Id"},
		Fields: []adapters.ConfigField{
			{Name: "adapters.azul.url", Type: "string", Required: true, Description: "PSP endpoint", Example: "https://pagos.azul.com.do/webservices/JSON/Default.aspx"},
		},
	}
}

func (f *Factory) Configured(cfg *config.Config) bool {
	return cfg.Adapters.Azul != nil
}

func (f *Factory) Create(cfg *config.Config, deps adapters.Deps) (adapters.Adapter, error) {
	return New(*cfg.Adapters.Azul, deps), nil
}
