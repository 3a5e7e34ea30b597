package handler

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
	"github.com/akave-ai/vaultgate/internal/model"
	"github.com/akave-ai/vaultgate/internal/response"
)

// InvocationLister reads the audit trail. *repository.InvocationRepository
// implements it.
type InvocationLister interface {
	ListRecent(ctx context.Context, adapter string, limit int) ([]model.InvocationRecord, error)
}

// AdapterHandler handles /adapters and /invocations. Invocations is nil when
// no database is configured.
type AdapterHandler struct {
	Registry    *adapters.Registry
	Invocations InvocationLister
}

// ListAdapters returns every known adapter and whether it is configured (GET /adapters).
func (h *AdapterHandler) ListAdapters(c echo.Context) error {
	return response.OK(c, map[string]any{"adapters": h.Registry.AllTypesInfo()}, "")
}

// GetAdapter returns one adapter's description (GET /adapters/:name).
func (h *AdapterHandler) GetAdapter(c echo.Context) error {
	name := c.Param("name")
	info, ok := h.Registry.GetTypeInfo(name)
	if !ok {
		return response.NotFound(c, "adapter not found", "unknown adapter: "+name)
	}
	return response.OK(c, info, "")
}

// ListInvocations returns recent audit records (GET /invocations?adapter=&limit=).
func (h *AdapterHandler) ListInvocations(c echo.Context) error {
	if h.Invocations == nil {
		return response.OK(c, map[string]any{"invocations": []model.InvocationRecord{}}, "database not configured")
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return response.BadRequest(c, "invalid limit", "limit must be an integer")
		}
		limit = n
	}
	list, err := h.Invocations.ListRecent(c.Request().Context(), c.QueryParam("adapter"), limit)
	if err != nil {
		return response.InternalError(c, "list invocations failed", err.Error())
	}
	if list == nil {
		list = []model.InvocationRecord{}
	}
	return response.OK(c, map[string]any{"invocations": list}, "")
}
