package codec

import (
	"net/url"

	"github.com/akave-ai/vaultgate/internal/apperr"
)

// FormXML is a form-urlencoded body carrying an XML document in one field.
type FormXML struct {
	values url.Values
	field  string
	XML    *XMLDocument
}

// ParseFormXML decodes body as a form and parses the named field as XML.
func ParseFormXML(body []byte, field string) (*FormXML, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.MalformedPayload, err, "decode form body")
	}
	raw := values.Get(field)
	if raw == "" {
		return nil, apperr.Newf(apperr.MalformedPayload, "%s field not found in the request", field)
	}
	doc, err := ParseXML(raw)
	if err != nil {
		return nil, err
	}
	return &FormXML{values: values, field: field, XML: doc}, nil
}

// Encode writes the re-serialized XML back into its field and encodes the
// whole form. Other fields are carried over unchanged.
func (f *FormXML) Encode() string {
	f.values.Set(f.field, f.XML.String())
	return f.values.Encode()
}

// Get returns the first value of another form field.
func (f *FormXML) Get(field string) string {
	return f.values.Get(field)
}
