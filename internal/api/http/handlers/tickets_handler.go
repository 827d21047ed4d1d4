package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/lifecycle"
	"github.com/spec-kit/support-desk/internal/service"
)

// TicketsHandler exposes ticket CRUD and lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	ticket, err := h.tickets.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusCreated, dto.FromTicket(ticket))
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter := parseListFilter(c)
	tickets, err := h.tickets.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromTickets(tickets))
}

// ListUnassigned handles GET /tickets/unassigned.
func (h *TicketsHandler) ListUnassigned(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListUnassigned(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromTickets(tickets))
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, detailResponse(ticket))
}

// GetByNumber handles GET /tickets/number/:number.
func (h *TicketsHandler) GetByNumber(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetByNumber(c.UserContext(), actor, c.Params("number"))
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, detailResponse(ticket))
}

// Update handles PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	ticket, err := h.tickets.Update(c.UserContext(), actor, c.Params("id"), service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromTicket(ticket))
}

// ChangeStatus handles POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	ticket, err := h.tickets.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status, req.Reason, req.ExpectedStatus)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, detailResponse(ticket))
}

// ChangePriority handles POST /tickets/:id/priority.
func (h *TicketsHandler) ChangePriority(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.PriorityChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	ticket, err := h.tickets.ChangePriority(c.UserContext(), actor, c.Params("id"), req.Priority, req.Reason)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromTicket(ticket))
}

// Delete handles DELETE /tickets/:id. The hard query flag removes the row
// instead of archiving it.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	hard := strings.EqualFold(c.Query("hard"), "true")
	if err := h.tickets.Delete(c.UserContext(), actor, c.Params("id"), hard); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// History handles GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	entries, err := h.tickets.ListHistory(c.UserContext(), actor, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromHistory(entries))
}

func detailResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.FromTicket(ticket)
	resp.NextStatuses = lifecycle.TargetsFrom(ticket.Status)
	return resp
}

func parseListFilter(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	for _, raw := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(raw)))
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(raw)))
	}
	if raw := c.Query("category"); raw != "" {
		category := domain.TicketCategory(strings.ToUpper(raw))
		filter.Category = &category
	}
	if raw := c.Query("search"); raw != "" {
		filter.SearchTerm = &raw
	}
	if t, ok := parseTime(c.Query("created_from")); ok {
		filter.CreatedFrom = &t
	}
	if t, ok := parseTime(c.Query("created_to")); ok {
		filter.CreatedTo = &t
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset", "0"))
	return filter
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
