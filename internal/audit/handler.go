package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler exposes the security event log to the dashboard. Access is
// enforced by the route gate (superadmin), not here.
type Handler struct {
	service *Service
}

// NewHandler creates an audit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListEvents returns a page of security events (GET /api/v1/security/events).
func (h *Handler) ListEvents(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	events, total, err := h.service.List(c.Request().Context(), offset, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"events": events,
		"total":  total,
	})
}

// RegisterRoutes mounts the audit API on the given Echo instance. The
// route table must declare this prefix superadmin-only.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/api/v1/security/events", h.ListEvents)
}
