package adapters

// ConfigField describes one configuration key of an adapter.
type ConfigField struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "number", "bool"
	Required    bool   `json:"required"`
	Secret      bool   `json:"secret,omitempty"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

// TypeInfo describes an adapter: how it authenticates, what it detokenizes
// and which configuration it reads. Exposed via GET /adapters.
type TypeInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Auth        string        `json:"auth"`
	ContentType string        `json:"content_type"`
	Tokens      []string      `json:"tokens"`
	Headers     []string      `json:"headers,omitempty"`
	Fields      []ConfigField `json:"fields"`
	Enabled     bool          `json:"enabled"`
}
