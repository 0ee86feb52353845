package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
	apperrors "github.com/SpectrexWizard/Q-Reserve/pkg/util"
)

const principalKey = "auth_principal"

// HeaderUserID carries the caller identity asserted by the upstream gateway.
const HeaderUserID = "X-User-ID"

// Principal represents the authenticated caller.
type Principal struct {
	User *domain.User
}

// UserResolver loads accounts during actor resolution.
type UserResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.User, error)
}

// ActorMiddleware resolves the trusted X-User-ID header into a principal.
// Identity proofing happens upstream at the gateway; by the time a request
// reaches this service the header is authoritative.
type ActorMiddleware struct {
	users UserResolver
}

// NewActorMiddleware constructs middleware.
func NewActorMiddleware(users UserResolver) *ActorMiddleware {
	return &ActorMiddleware{users: users}
}

// Handle enforces actor resolution for protected routes.
func (m *ActorMiddleware) Handle(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Get(HeaderUserID))
	if userID == "" {
		return apperrors.NewUnauthorized("missing X-User-ID header")
	}

	user, err := m.users.Resolve(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("unknown user")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return apperrors.NewUnauthorized("account is disabled")
	}

	c.Locals(principalKey, &Principal{User: user})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// ActorFromContext returns the resolved user, the form handlers consume.
func ActorFromContext(c *fiber.Ctx) (*domain.User, bool) {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, false
	}
	return principal.User, true
}
