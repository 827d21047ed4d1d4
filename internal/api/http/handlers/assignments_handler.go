package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// AssignmentsHandler exposes assignment and workload endpoints.
type AssignmentsHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignments *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{assignments: assignments}
}

// AssignManual handles POST /assignments/manual.
func (h *AssignmentsHandler) AssignManual(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ManualAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	result, err := h.assignments.AssignManual(c.UserContext(), actor, req.TicketID, req.AgentID, req.Priority, req.Notes)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusCreated, assignmentResult(result))
}

// AssignAuto handles POST /assignments/auto.
func (h *AssignmentsHandler) AssignAuto(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AutoAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	result, err := h.assignments.AssignAuto(c.UserContext(), actor, req.TicketID)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusCreated, assignmentResult(result))
}

// Reassign handles POST /assignments/reassign.
func (h *AssignmentsHandler) Reassign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	result, err := h.assignments.Reassign(c.UserContext(), actor, req.TicketID, req.NewAgentID, req.Reason)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, assignmentResult(result))
}

// ListForTicket handles GET /tickets/:id/assignments.
func (h *AssignmentsHandler) ListForTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	assignments, err := h.assignments.ListForTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromAssignments(assignments))
}

// ListForAgent handles GET /agents/:id/assignments.
func (h *AssignmentsHandler) ListForAgent(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	activeOnly := c.Query("active") == "true"
	assignments, err := h.assignments.ListForAgent(c.UserContext(), actor, c.Params("id"), activeOnly)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromAssignments(assignments))
}

// Workloads handles GET /agents/workloads.
func (h *AssignmentsHandler) Workloads(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	overviews, err := h.assignments.AgentOverviews(c.UserContext(), actor)
	if err != nil {
		return err
	}
	out := make([]dto.WorkloadResponse, 0, len(overviews))
	for i := range overviews {
		out = append(out, dto.FromWorkload(&overviews[i].Workload, overviews[i].Recommended))
	}
	return dataResponse(c, http.StatusOK, out)
}

// SetAgentStatus handles PUT /agents/:id/status.
func (h *AssignmentsHandler) SetAgentStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AgentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.assignments.SetAgentStatus(c.UserContext(), actor, c.Params("id"), req.Status); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func assignmentResult(result *service.AssignmentResult) fiber.Map {
	out := fiber.Map{
		"ticket":     dto.FromTicket(result.Ticket),
		"assignment": dto.FromAssignment(result.Assignment),
	}
	if result.Workload != nil {
		out["workload"] = dto.FromWorkload(result.Workload, false)
	}
	return out
}
