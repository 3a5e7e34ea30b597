package codec

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/akave-ai/vaultgate/internal/apperr"
)

// expirationCentury is prefixed to two-digit expiration years.
const expirationCentury = "20"

// JSONDocument is a parsed JSON object body addressed by dotted field paths
// such as "paymentInformation.card.number".
type JSONDocument struct {
	root map[string]any
}

// ParseJSON parses an object body. Numbers are kept as json.Number so they
// re-serialize unchanged.
func ParseJSON(body []byte) (*JSONDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apperr.Wrap(apperr.MalformedPayload, err, "parse JSON body")
	}
	if dec.More() {
		return nil, apperr.New(apperr.MalformedPayload, "parse JSON body: trailing data after object")
	}
	root, ok := v.(map[string]any)
	if !ok {
		return nil, apperr.New(apperr.MalformedPayload, "JSON body is not an object")
	}
	return &JSONDocument{root: root}, nil
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// parent walks to the object holding the last path segment. With create set,
// missing intermediate objects are added.
func (d *JSONDocument) parent(path string, create bool) (map[string]any, string, error) {
	segs := splitPath(path)
	cur := d.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			if !create {
				return nil, "", apperr.Newf(apperr.MalformedPayload, "field %q not found", path)
			}
			child := map[string]any{}
			cur[seg] = child
			cur = child
			continue
		}
		obj, ok := next.(map[string]any)
		if !ok {
			return nil, "", apperr.Newf(apperr.MalformedPayload, "field %q: %q is not an object", path, seg)
		}
		cur = obj
	}
	return cur, segs[len(segs)-1], nil
}

// Get returns the string value at path. ok is false when the field or any
// parent is absent, or the value is not a string.
func (d *JSONDocument) Get(path string) (value string, ok bool) {
	obj, key, err := d.parent(path, false)
	if err != nil {
		return "", false
	}
	s, ok := obj[key].(string)
	return s, ok
}

// RequireObject fails with MalformedPayload unless path holds a JSON object.
func (d *JSONDocument) RequireObject(path string) error {
	obj, key, err := d.parent(path, false)
	if err != nil {
		return err
	}
	if _, ok := obj[key].(map[string]any); !ok {
		return apperr.Newf(apperr.MalformedPayload, "field %q is not an object", path)
	}
	return nil
}

// Set writes a string value at path, creating missing parent objects.
func (d *JSONDocument) Set(path, value string) error {
	obj, key, err := d.parent(path, true)
	if err != nil {
		return err
	}
	obj[key] = value
	return nil
}

// Delete removes the field at path if present.
func (d *JSONDocument) Delete(path string) {
	obj, key, err := d.parent(path, false)
	if err != nil {
		return
	}
	delete(obj, key)
}

// Tokens returns the string values at paths in order; absent fields yield "".
func (d *JSONDocument) Tokens(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i], _ = d.Get(p)
	}
	return out
}

// Splice writes lookup(i) to paths[i] for every i that lookup reports present.
func (d *JSONDocument) Splice(paths []string, lookup func(i int) (string, bool)) error {
	for i, p := range paths {
		v, ok := lookup(i)
		if !ok {
			continue
		}
		if err := d.Set(p, v); err != nil {
			return err
		}
	}
	return nil
}

// MergeExpiration replaces separate month and year fields with a single
// target field holding "20"+year+month. Four-digit years are used as-is and
// single-digit months are zero padded.
func (d *JSONDocument) MergeExpiration(monthPath, yearPath, targetPath, month, year string) error {
	value, err := ExpirationYYYYMM(year, month)
	if err != nil {
		return err
	}
	d.Delete(monthPath)
	d.Delete(yearPath)
	return d.Set(targetPath, value)
}

// ExpirationYYYYMM combines an expiration year and month into YYYYMM.
func ExpirationYYYYMM(year, month string) (string, error) {
	year = strings.TrimSpace(year)
	month = strings.TrimSpace(month)
	if !isDigits(year) || !isDigits(month) {
		return "", apperr.New(apperr.MalformedPayload, "expiration month and year must be numeric")
	}
	switch len(year) {
	case 2:
		year = expirationCentury + year
	case 4:
	default:
		return "", apperr.Newf(apperr.MalformedPayload, "unsupported expiration year length %d", len(year))
	}
	switch len(month) {
	case 1:
		month = "0" + month
	case 2:
	default:
		return "", apperr.Newf(apperr.MalformedPayload, "unsupported expiration month length %d", len(month))
	}
	return year + month, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Bytes serializes the document compactly without HTML escaping, with object
// keys in sorted order. The result is exactly what gets digested, signed and
// sent.
func (d *JSONDocument) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d.root); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "encode JSON body")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Stringify renders an upstream body the way a JSON client would echo it:
// valid JSON is compacted, anything else becomes a JSON string literal.
func Stringify(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if json.Valid(trimmed) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
	}
	return Quote(string(body))
}

// Quote renders s as a JSON string literal without HTML escaping.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
