package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

// UsersHandler exposes auth and user administration endpoints.
type UsersHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, users *service.UserService) *UsersHandler {
	return &UsersHandler{auth: authService, users: users}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusCreated, dto.FromUser(user))
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	session, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, fiber.Map{
		"user": dto.FromUser(session.User),
		"auth": dto.AuthResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
	})
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	return dataResponse(c, http.StatusOK, dto.FromUser(principal.User))
}

// CreateStaff handles POST /users.
func (h *UsersHandler) CreateStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.users.CreateStaff(c.UserContext(), actor, service.StaffCreateInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		ManagerID: req.ManagerID,
	})
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusCreated, dto.FromUser(user))
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter := repository.UserFilter{}
	if raw := c.Query("role"); raw != "" {
		role := domain.UserRole(raw)
		filter.Role = &role
	}
	if raw := c.Query("search"); raw != "" {
		filter.Search = &raw
	}
	users, err := h.users.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromUsers(users))
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromUser(user))
}

// ChangeRole handles PUT /users/:id/role.
func (h *UsersHandler) ChangeRole(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.users.ChangeRole(c.UserContext(), actor, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromUser(user))
}

// SetActive handles PUT /users/:id/active.
func (h *UsersHandler) SetActive(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.users.SetActive(c.UserContext(), actor, c.Params("id"), req.Active)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromUser(user))
}

// AssignManager handles PUT /users/:id/manager.
func (h *UsersHandler) AssignManager(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignManagerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.users.AssignManager(c.UserContext(), actor, c.Params("id"), req.ManagerID)
	if err != nil {
		return err
	}
	return dataResponse(c, http.StatusOK, dto.FromUser(user))
}
