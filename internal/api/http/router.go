package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	Escalations    *handlers.EscalationsHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/register", cfg.Users.Register)
	app.Post("/auth/login", cfg.Users.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle)
	authed.Get("/auth/me", cfg.Users.Me)

	tickets := authed.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/unassigned", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Tickets.ListUnassigned)
	tickets.Get("/number/:number", cfg.Tickets.GetByNumber)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Delete)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/priority", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Tickets.ChangePriority)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/assignments", auth.RequireStaff(), cfg.Assignments.ListForTicket)
	tickets.Get("/:id/sla", auth.RequireStaff(), cfg.SLA.ForTicket)
	tickets.Post("/:id/escalate", auth.RequireRole(domain.RoleAgent, domain.RoleManager), cfg.Escalations.Escalate)

	assignments := authed.Group("/assignments", auth.RequireRole(domain.RoleManager, domain.RoleAdmin))
	assignments.Post("/manual", cfg.Assignments.AssignManual)
	assignments.Post("/auto", cfg.Assignments.AssignAuto)
	assignments.Post("/reassign", cfg.Assignments.Reassign)

	agents := authed.Group("/agents", auth.RequireStaff())
	agents.Get("/workloads", cfg.Assignments.Workloads)
	agents.Get("/:id/assignments", cfg.Assignments.ListForAgent)
	agents.Put("/:id/status", cfg.Assignments.SetAgentStatus)

	escalations := authed.Group("/escalations", auth.RequireRole(domain.RoleManager, domain.RoleAdmin))
	escalations.Get("/queue", cfg.Escalations.Queue)
	escalations.Get("/pending", cfg.Escalations.Pending)
	escalations.Post("/:ticketId/ack", cfg.Escalations.Acknowledge)

	slaGroup := authed.Group("/sla", auth.RequireStaff())
	slaGroup.Get("/warnings", cfg.SLA.Warnings)
	slaGroup.Get("/breached", cfg.SLA.Breached)

	users := authed.Group("/users")
	users.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Users.CreateStaff)
	users.Get("", auth.RequireStaff(), cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id/role", auth.RequireRole(domain.RoleAdmin), cfg.Users.ChangeRole)
	users.Put("/:id/active", auth.RequireRole(domain.RoleAdmin), cfg.Users.SetActive)
	users.Put("/:id/manager", auth.RequireRole(domain.RoleAdmin), cfg.Users.AssignManager)
}
