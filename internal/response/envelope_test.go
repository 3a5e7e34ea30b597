package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/forwarder"
	"github.com/akave-ai/vaultgate/internal/model"
)

var xmlProfile = Profile{ContentType: "text/xml", RawUpstreamBody: true, DetokenizeStatus: http.StatusInternalServerError}

func TestNew(t *testing.T) {
	fr := New()
	assert.Equal(t, http.StatusOK, fr.StatusCode)
	assert.Equal(t, "application/json", fr.Headers["Content-Type"])
	assert.Equal(t, "false", fr.Headers["Error-From-Client"])
	assert.False(t, fr.ErrorFromClient())
}

func TestClassify(t *testing.T) {
	vault404 := &apperr.Error{Kind: apperr.DetokenizationFailure, Msg: "vault returned 404", Status: 404,
		Body: `{"error":{"grpc_code":5,"http_code":404,"message":"Token not found","http_status":"Not Found"}}`}
	vault502 := &apperr.Error{Kind: apperr.DetokenizationFailure, Msg: "vault returned 502", Body: "bad gateway"}

	tests := []struct {
		name       string
		profile    Profile
		upstream   *forwarder.Response
		err        error
		wantStatus int
		wantBody   string
		wantCT     string
		wantEFC    string
	}{
		{
			name:       "psp success json",
			profile:    JSONProfile,
			upstream:   &forwarder.Response{StatusCode: 200, Body: []byte(`{ "status": "approved" }`)},
			wantStatus: 200, wantBody: `{"status":"approved"}`, wantCT: "application/json", wantEFC: "false",
		},
		{
			name:       "psp decline json",
			profile:    JSONProfile,
			upstream:   &forwarder.Response{StatusCode: 402, Body: []byte(`{"error":"declined"}`)},
			wantStatus: 402, wantBody: `{"error":"declined"}`, wantCT: "application/json", wantEFC: "true",
		},
		{
			name:       "psp text error json profile",
			profile:    JSONProfile,
			upstream:   &forwarder.Response{StatusCode: 503, Body: []byte("Service Unavailable")},
			wantStatus: 503, wantBody: `"Service Unavailable"`, wantCT: "application/json", wantEFC: "true",
		},
		{
			name:       "psp success xml",
			profile:    xmlProfile,
			upstream:   &forwarder.Response{StatusCode: 200, Body: []byte(`<response><approved>true</approved></response>`)},
			wantStatus: 200, wantBody: `<response><approved>true</approved></response>`, wantCT: "text/xml", wantEFC: "false",
		},
		{
			name:       "psp failure xml",
			profile:    xmlProfile,
			upstream:   &forwarder.Response{StatusCode: 400, Body: []byte(`<error/>`)},
			wantStatus: 400, wantBody: `<error/>`, wantCT: "text/xml", wantEFC: "true",
		},
		{
			name:       "bad request",
			profile:    JSONProfile,
			err:        apperr.New(apperr.BadRequest, BadRequestBody),
			wantStatus: 400, wantBody: "Bad request", wantCT: "application/json", wantEFC: "false",
		},
		{
			name:       "vault failure with http_code",
			profile:    JSONProfile,
			err:        vault404,
			wantStatus: 404, wantBody: vault404.Body, wantCT: "application/json", wantEFC: "false",
		},
		{
			name:       "vault failure without http_code",
			profile:    JSONProfile,
			err:        vault502,
			wantStatus: 500, wantBody: "bad gateway", wantCT: "application/json", wantEFC: "false",
		},
		{
			name:       "vault failure xml profile ignores http_code",
			profile:    xmlProfile,
			err:        vault404,
			wantStatus: 500, wantBody: vault404.Body, wantCT: "application/json", wantEFC: "false",
		},
		{
			name:       "psp transport failure",
			profile:    JSONProfile,
			err:        apperr.Wrap(apperr.UpstreamFailure, errors.New("dial tcp: connection refused"), "PSP request failed"),
			wantStatus: 502, wantBody: `"PSP request failed: dial tcp: connection refused"`, wantCT: "application/json", wantEFC: "true",
		},
		{
			name:       "malformed payload",
			profile:    JSONProfile,
			err:        apperr.New(apperr.MalformedPayload, "JSON body is not an object"),
			wantStatus: 500, wantBody: `"JSON body is not an object"`, wantCT: "application/json", wantEFC: "false",
		},
		{
			name:       "plain error",
			profile:    xmlProfile,
			err:        errors.New("boom"),
			wantStatus: 500, wantBody: `"boom"`, wantCT: "application/json", wantEFC: "false",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := Classify(tt.profile, tt.upstream, tt.err)
			assert.Equal(t, tt.wantStatus, fr.StatusCode)
			assert.Equal(t, tt.wantBody, fr.BodyBytes)
			assert.Equal(t, tt.wantCT, fr.Headers[model.HeaderContentType])
			assert.Equal(t, tt.wantEFC, fr.Headers[model.HeaderErrorFromClient])
		})
	}
}

func TestPanic(t *testing.T) {
	fr := Panic(errors.New("nil map"))
	assert.Equal(t, 500, fr.StatusCode)
	assert.Equal(t, `"nil map"`, fr.BodyBytes)

	assert.Equal(t, `"internal error"`, Panic(42).BodyBytes)
}

func TestWrite(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/relay/segpay", nil), rec)

	fr := New()
	fr.StatusCode = http.StatusPaymentRequired
	fr.Headers[model.HeaderContentType] = "text/xml"
	fr.Headers[model.HeaderErrorFromClient] = "true"
	fr.BodyBytes = "<declined/>"

	require.NoError(t, Write(c, fr))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "true", rec.Header().Get("Error-From-Client"))
	assert.Equal(t, "<declined/>", rec.Body.String())
}
