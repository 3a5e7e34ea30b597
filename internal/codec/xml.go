package codec

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html/charset"

	"github.com/akave-ai/vaultgate/internal/apperr"
)

// XMLDocument is a parsed XML document whose element attributes can be
// rewritten in place.
type XMLDocument struct {
	root *xmlquery.Node
}

// ParseXML parses an XML document with entity expansion and DTD processing
// disabled: the decoder is strict with no custom entities, and any <!...>
// directive (DOCTYPE, ENTITY) rejects the document.
func ParseXML(s string) (*XMLDocument, error) {
	if strings.TrimSpace(s) == "" {
		return nil, apperr.New(apperr.MalformedPayload, "empty XML document")
	}
	if err := rejectDirectives(s); err != nil {
		return nil, err
	}
	doc, err := xmlquery.ParseWithOptions(strings.NewReader(s), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict:        true,
			Entity:        nil,
			CharsetReader: charset.NewReaderLabel,
		},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.MalformedPayload, err, "parse XML")
	}
	if hasDirective(doc) {
		return nil, apperr.New(apperr.MalformedPayload, "parse XML: DTD and entity declarations are not allowed")
	}
	return &XMLDocument{root: doc}, nil
}

// rejectDirectives scans the raw token stream before any tree is built.
// xmlquery keeps a leading DOCTYPE as a sibling of the document node, so
// the tree walk alone does not see it.
func rejectDirectives(s string) error {
	dec := xml.NewDecoder(strings.NewReader(s))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return apperr.Wrap(apperr.MalformedPayload, err, "parse XML")
		}
		if _, ok := tok.(xml.Directive); ok {
			return apperr.New(apperr.MalformedPayload, "parse XML: DTD and entity declarations are not allowed")
		}
	}
}

// hasDirective reports a notation node anywhere in the tree, including the
// siblings of the document node.
func hasDirective(doc *xmlquery.Node) bool {
	first := doc
	for first.PrevSibling != nil {
		first = first.PrevSibling
	}
	for n := first; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.NotationNode || hasDirectiveChild(n) {
			return true
		}
	}
	return false
}

func hasDirectiveChild(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.NotationNode || hasDirectiveChild(c) {
			return true
		}
	}
	return false
}

// Element returns the first element at a slash separated path from the
// document root, e.g. "data/authrequest".
func (d *XMLDocument) Element(path string) (*xmlquery.Node, error) {
	expr := "/" + strings.Trim(path, "/")
	n, err := xmlquery.Query(d.root, expr)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "invalid element path "+path)
	}
	if n == nil {
		return nil, apperr.Newf(apperr.MalformedPayload, "element %s not found", path)
	}
	return n, nil
}

// Attr returns the attribute value of the element at path. ok is false when
// the attribute is absent.
func (d *XMLDocument) Attr(path, name string) (value string, ok bool, err error) {
	n, err := d.Element(path)
	if err != nil {
		return "", false, err
	}
	for _, a := range n.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true, nil
		}
	}
	return "", false, nil
}

// Attrs returns the values of the named attributes in order; absent
// attributes yield "".
func (d *XMLDocument) Attrs(path string, names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		v, _, err := d.Attr(path, name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// SetAttr replaces (or adds) an attribute on the element at path.
func (d *XMLDocument) SetAttr(path, name, value string) error {
	n, err := d.Element(path)
	if err != nil {
		return err
	}
	n.SetAttr(name, value)
	return nil
}

// SpliceAttrs writes lookup(i) to attribute names[i] of the element at path
// for every i that lookup reports present.
func (d *XMLDocument) SpliceAttrs(path string, names []string, lookup func(i int) (string, bool)) error {
	n, err := d.Element(path)
	if err != nil {
		return err
	}
	for i, name := range names {
		if v, ok := lookup(i); ok {
			n.SetAttr(name, v)
		}
	}
	return nil
}

// String re-serializes the document. The output is semantically equal to
// the input, not byte identical.
func (d *XMLDocument) String() string {
	return d.root.OutputXML(false)
}
