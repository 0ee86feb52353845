package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/SpectrexWizard/Q-Reserve/internal/access"
	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
	"github.com/SpectrexWizard/Q-Reserve/internal/repository"
	"github.com/SpectrexWizard/Q-Reserve/pkg/util"
)

// UserService provisions and manages accounts. Identity proofing lives
// upstream at the gateway; this service only keeps the directory of who
// exists, their role and whether they are active.
type UserService struct {
	store *repository.Store
	tx    repository.TxRunner
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store *repository.Store
	Tx    repository.TxRunner
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{store: deps.Store, tx: deps.Tx}
}

// UserCreateInput describes a new account. An empty role defaults to
// end_user; anything else must parse.
type UserCreateInput struct {
	Username string
	Email    string
	FullName string
	Role     string
}

// UserUpdateInput describes account edits; nil fields are untouched.
type UserUpdateInput struct {
	Email    *string
	FullName *string
	Role     *string
	IsActive *bool
}

// UserListFilter describes directory listing parameters.
type UserListFilter struct {
	Role     *string
	IsActive *bool
	Limit    int
	Offset   int
}

// CreateUser provisions an account. Admin only.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if err := requireCapability(actor, access.CapManageUsers); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" {
		return nil, util.NewValidationError("username is required", nil)
	}
	if email == "" {
		return nil, util.NewValidationError("email is required", nil)
	}

	role := domain.RoleEndUser
	if raw := strings.TrimSpace(input.Role); raw != "" {
		parsed, ok := domain.ParseRole(raw)
		if !ok {
			return nil, util.NewValidationError("invalid role value", map[string]any{"role": raw})
		}
		role = parsed
	}

	user := &domain.User{
		Username: username,
		Email:    email,
		FullName: strings.TrimSpace(input.FullName),
		Role:     role,
		IsActive: true,
	}
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		if err := store.Users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return util.NewConflict("username or email already in use", map[string]any{"username": username})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser edits email, full name, role and/or the active flag. Admin only.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, userID string, input UserUpdateInput) (*domain.User, error) {
	if err := requireCapability(actor, access.CapManageUsers); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		var err error
		user, err = store.Users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("user", map[string]any{"user_id": userID})
			}
			return err
		}

		if input.Email != nil {
			email := strings.TrimSpace(*input.Email)
			if email == "" {
				return util.NewValidationError("email cannot be empty", nil)
			}
			user.Email = email
		}
		if input.FullName != nil {
			user.FullName = strings.TrimSpace(*input.FullName)
		}
		if input.Role != nil {
			role, ok := domain.ParseRole(*input.Role)
			if !ok {
				return util.NewValidationError("invalid role value", map[string]any{"role": *input.Role})
			}
			user.Role = role
		}
		if input.IsActive != nil {
			user.IsActive = *input.IsActive
		}

		if err := store.Users.Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return util.NewConflict("email already in use", map[string]any{"email": user.Email})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns one account; admins may read anyone, others only
// themselves.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.ID != userID && actor.Role != domain.RoleAdmin {
		return nil, util.NewForbidden("not allowed to view this user")
	}
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns the directory. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter UserListFilter) ([]domain.User, error) {
	if err := requireCapability(actor, access.CapManageUsers); err != nil {
		return nil, err
	}

	repoFilter := repository.UserFilter{
		IsActive: filter.IsActive,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if filter.Role != nil {
		role, ok := domain.ParseRole(*filter.Role)
		if !ok {
			return nil, util.NewValidationError("invalid role value", map[string]any{"role": *filter.Role})
		}
		repoFilter.Role = &role
	}
	return s.store.Users.List(ctx, repoFilter)
}

// ListAssignable returns active staff for assignment pickers. Staff only.
func (s *UserService) ListAssignable(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		return nil, util.NewForbidden("insufficient role")
	}
	active := true
	return s.store.Users.List(ctx, repository.UserFilter{StaffOnly: true, IsActive: &active})
}

// Resolve loads an account by id with no permission gate. It backs the
// actor-resolution middleware, which runs before any principal exists.
func (s *UserService) Resolve(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.Users.GetByID(ctx, userID)
}
