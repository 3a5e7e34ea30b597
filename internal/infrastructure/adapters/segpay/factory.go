package segpay

import (
	"github.com/akave-ai/vaultgate/internal/config"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
)

// Name is the adapter name used in routes.
const Name = "segpay"

// Factory creates the Segpay adapter. Registers as "segpay".
type Factory struct{}

func (f *Factory) Name() string {
	return Name
}

func (f *Factory) ConfigSpec() adapters.TypeInfo {
	return adapters.TypeInfo{
		Name:        Name,
		Description: "Segpay. Parses the XML document in the XMLData form field, detokenizes the authrequest card attributes and posts the rewritten form. Responses are returned as text/xml.",
		Auth:        "none",
		ContentType: responseContentType,
		Tokens:      []string{xmlField + ":" + elementPath + "@" + attrCardNumber, xmlField + ":" + elementPath + "@" + attrCVV, xmlField + ":" + elementPath + "@" + attrExpDate},
		Headers:     []string{"X-Request-Id"},
		Fields: []adapters.ConfigField{
			{Name: "adapters.segpay.auth_url", Type: "string", Required: true, Description: "Authorization endpoint", Example: "https://srs.segpay.com/ProcessTransaction"},
		},
	}
}

func (f *Factory) Configured(cfg *config.Config) bool {
	return cfg.Adapters.Segpay != nil
}

func (f *Factory) Create(cfg *config.Config, deps adapters.Deps) (adapters.Adapter, error) {
	return New(*cfg.Adapters.Segpay, deps), nil
}
