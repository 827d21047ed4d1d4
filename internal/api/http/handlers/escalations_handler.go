package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// EscalationsHandler exposes escalation endpoints.
type EscalationsHandler struct {
	escalations *service.EscalationService
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(escalations *service.EscalationService) *EscalationsHandler {
	return &EscalationsHandler{escalations: escalations}
}

// Escalate handles POST /tickets/:id/escalate.
func (h *EscalationsHandler) Escalate(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	ticket, err := h.escalations.Escalate(c.UserContext(), actor, c.Params("id"), req.Reason, req.EscalationType)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromTicket(ticket))
}

// Queue handles GET /escalations/queue.
func (h *EscalationsHandler) Queue(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	tickets, err := h.escalations.Queue(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromTickets(tickets))
}

// Pending handles GET /escalations/pending.
func (h *EscalationsHandler) Pending(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)
	ids, err := h.escalations.PendingNotifications(c.UserContext(), actor, limit)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, fiber.Map{"ticket_ids": ids})
}

// Acknowledge handles POST /escalations/:ticketId/ack.
func (h *EscalationsHandler) Acknowledge(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.escalations.Acknowledge(c.UserContext(), actor, c.Params("ticketId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
