package adapters

import "github.com/akave-ai/vaultgate/internal/config"

// Factory creates an Adapter from configuration.
// Each PSP package implements and registers a Factory.
type Factory interface {
	Name() string
	ConfigSpec() TypeInfo
	// Configured reports whether cfg holds a section for this adapter.
	Configured(cfg *config.Config) bool
	Create(cfg *config.Config, deps Deps) (Adapter, error)
}
