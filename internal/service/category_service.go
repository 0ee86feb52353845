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

// CategoryService manages the classification tree tickets attach to.
// Categories are never hard-deleted; retiring one flips it inactive so
// existing tickets keep their reference.
type CategoryService struct {
	store *repository.Store
	tx    repository.TxRunner
}

// CategoryDependencies bundles collaborators for the category service.
type CategoryDependencies struct {
	Store *repository.Store
	Tx    repository.TxRunner
}

// NewCategoryService constructs the service.
func NewCategoryService(deps CategoryDependencies) *CategoryService {
	return &CategoryService{store: deps.Store, tx: deps.Tx}
}

// CategoryCreateInput describes a new category.
type CategoryCreateInput struct {
	Name        string
	Description string
}

// CategoryUpdateInput describes category edits; nil fields are untouched.
type CategoryUpdateInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// CreateCategory adds a category. Admin only.
func (s *CategoryService) CreateCategory(ctx context.Context, actor *domain.User, input CategoryCreateInput) (*domain.Category, error) {
	if err := requireCapability(actor, access.CapManageCategories); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, util.NewValidationError("name is required", nil)
	}

	category := &domain.Category{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		if err := store.Categories.Create(ctx, category); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return util.NewConflict("category name already exists", map[string]any{"name": name})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory edits name, description and/or the active flag. Admin only.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor *domain.User, categoryID string, input CategoryUpdateInput) (*domain.Category, error) {
	if err := requireCapability(actor, access.CapManageCategories); err != nil {
		return nil, err
	}

	var category *domain.Category
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		var err error
		category, err = store.Categories.GetByID(ctx, categoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("category", map[string]any{"category_id": categoryID})
			}
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return util.NewValidationError("name cannot be empty", nil)
			}
			category.Name = name
		}
		if input.Description != nil {
			category.Description = strings.TrimSpace(*input.Description)
		}
		if input.IsActive != nil {
			category.IsActive = *input.IsActive
		}

		if err := store.Categories.Update(ctx, category); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return util.NewConflict("category name already exists", map[string]any{"name": category.Name})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory retires a category. While tickets still reference it the
// call is refused; otherwise it is deactivated in place.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor *domain.User, categoryID string) error {
	if err := requireCapability(actor, access.CapManageCategories); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(store *repository.Store) error {
		category, err := store.Categories.GetByID(ctx, categoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("category", map[string]any{"category_id": categoryID})
			}
			return err
		}

		count, err := store.Tickets.CountByCategory(ctx, category.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return util.NewConflict("category is referenced by tickets; deactivate it instead",
				map[string]any{"category_id": category.ID, "ticket_count": count})
		}

		category.IsActive = false
		return store.Categories.Update(ctx, category)
	})
}

// ListCategories returns categories for pickers. Inactive entries are only
// included for admins who ask for them.
func (s *CategoryService) ListCategories(ctx context.Context, actor *domain.User, includeInactive bool) ([]domain.Category, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	includeInactive = includeInactive && actor.Role == domain.RoleAdmin
	return s.store.Categories.List(ctx, includeInactive)
}

func requireCapability(actor *domain.User, capability access.Capability) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !access.HasCapability(actor.Role, capability) {
		return util.NewForbidden("insufficient role")
	}
	return nil
}
