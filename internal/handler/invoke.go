package handler

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akave-ai/vaultgate/internal/model"
	"github.com/akave-ai/vaultgate/internal/response"
)

// maxRelayBody bounds the raw body accepted on /relay.
const maxRelayBody = 1 << 20

// Invoker runs one invocation. *pipeline.Pipeline implements it.
type Invoker interface {
	Invoke(ctx context.Context, adapterName string, inv model.Invocation) model.FunctionResponse
}

// InvokeHandler exposes the pipeline over HTTP.
type InvokeHandler struct {
	Pipeline Invoker
}

// Invoke takes an Invocation JSON document and returns the FunctionResponse
// envelope as JSON with HTTP 200 (POST /invoke/:adapter).
func (h *InvokeHandler) Invoke(c echo.Context) error {
	var inv model.Invocation
	if err := c.Bind(&inv); err != nil {
		return response.BadRequest(c, "invalid invocation", "body must be {\"BodyContent\": base64, \"Headers\": {name: [values]}}")
	}
	fr := h.Pipeline.Invoke(c.Request().Context(), c.Param("adapter"), inv)
	return c.JSON(http.StatusOK, fr)
}

// Relay turns a raw HTTP request into an Invocation and answers with the
// envelope as a plain HTTP response (POST /relay/:adapter).
func (h *InvokeHandler) Relay(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRelayBody+1))
	if err != nil {
		return response.BadRequest(c, "read body", err.Error())
	}
	if len(body) > maxRelayBody {
		return response.Error(c, http.StatusRequestEntityTooLarge, "body too large", "relay bodies are limited to 1MiB")
	}
	inv := model.Invocation{
		BodyContent: base64.StdEncoding.EncodeToString(body),
		Headers:     model.Headers(c.Request().Header.Clone()),
	}
	fr := h.Pipeline.Invoke(c.Request().Context(), c.Param("adapter"), inv)
	return response.Write(c, fr)
}
