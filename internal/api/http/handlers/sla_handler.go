package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// SLAHandler exposes SLA dashboard endpoints.
type SLAHandler struct {
	slas *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slas *service.SLAService) *SLAHandler {
	return &SLAHandler{slas: slas}
}

// ForTicket handles GET /tickets/:id/sla.
func (h *SLAHandler) ForTicket(c *fiber.Ctx) error {
	if _, err := actorFrom(c); err != nil {
		return err
	}
	overview, err := h.slas.GetForTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromTracking(&overview.Tracking, overview.Status, overview.Remaining))
}

// Warnings handles GET /sla/warnings.
func (h *SLAHandler) Warnings(c *fiber.Ctx) error {
	if _, err := actorFrom(c); err != nil {
		return err
	}
	overviews, err := h.slas.Warnings(c.UserContext())
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, mapOverviews(overviews))
}

// Breached handles GET /sla/breached.
func (h *SLAHandler) Breached(c *fiber.Ctx) error {
	if _, err := actorFrom(c); err != nil {
		return err
	}
	overviews, err := h.slas.Breaches(c.UserContext())
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, mapOverviews(overviews))
}

func mapOverviews(overviews []service.SLAOverview) []dto.SLAResponse {
	out := make([]dto.SLAResponse, 0, len(overviews))
	for i := range overviews {
		o := &overviews[i]
		out = append(out, dto.FromTracking(&o.Tracking, o.Status, o.Remaining))
	}
	return out
}
