package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// UserService covers user administration: staff account creation, role
// changes, activation, manager wiring. Admin only except where noted.
type UserService struct {
	users     repository.UserRepository
	workloads repository.WorkloadRepository
	cfg       config.AuthConfig
}

// StaffCreateInput carries data for an admin-created account.
type StaffCreateInput struct {
	Username  string
	Email     string
	Password  string
	Role      domain.UserRole
	ManagerID *string
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, workloads repository.WorkloadRepository, cfg config.AuthConfig) *UserService {
	return &UserService{users: users, workloads: workloads, cfg: cfg}
}

// CreateStaff provisions an account with any role. Agents get a workload row
// so they immediately participate in automatic assignment.
func (s *UserService) CreateStaff(ctx context.Context, actor Actor, input StaffCreateInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, apperrors.NewValidationError("username and email required", nil)
	}
	if len(input.Password) < minPasswordLen {
		return nil, apperrors.NewValidationError("password too short", map[string]any{"min_length": minPasswordLen})
	}
	if !domain.ValidRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}

	hashed, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         input.Role,
		Active:       true,
		ManagerID:    input.ManagerID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	if user.Role == domain.RoleAgent && s.workloads != nil {
		if err := s.workloads.Ensure(ctx, user.ID); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return user, nil
}

// Get returns a user. Staff may look anyone up; end-users only themselves.
func (s *UserService) Get(ctx context.Context, actor Actor, userID string) (*domain.User, error) {
	if !actor.Role.Staff() && actor.ID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.fetch(ctx, userID)
}

// List returns users matching the filter. Staff only.
func (s *UserService) List(ctx context.Context, actor Actor, filter repository.UserFilter) ([]domain.User, error) {
	if !actor.Role.Staff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ChangeRole moves a user between roles. Promoting to agent creates the
// workload row.
func (s *UserService) ChangeRole(ctx context.Context, actor Actor, userID string, role domain.UserRole) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	if role == domain.RoleAgent && s.workloads != nil {
		if err := s.workloads.Ensure(ctx, user.ID); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return user, nil
}

// SetActive toggles an account. Deactivated agents drop out of assignment
// eligibility via their workload status.
func (s *UserService) SetActive(ctx context.Context, actor Actor, userID string, active bool) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Active == active {
		return user, nil
	}
	user.Active = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	if user.Role == domain.RoleAgent && s.workloads != nil && !active {
		_ = s.workloads.SetStatus(ctx, user.ID, domain.AgentStatusOffline)
	}
	return user, nil
}

// AssignManager records who an agent reports to; escalations route there.
func (s *UserService) AssignManager(ctx context.Context, actor Actor, userID, managerID string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	manager, err := s.fetch(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if manager.Role != domain.RoleManager {
		return nil, apperrors.NewValidationError("user is not a manager", map[string]any{"manager_id": managerID})
	}
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.ManagerID = &manager.ID
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *UserService) fetch(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func requireAdmin(actor Actor) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}
