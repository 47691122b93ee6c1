package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/returnsdesk/oem-returns/internal/domain"
	apperrors "github.com/returnsdesk/oem-returns/pkg/util/errorutil"
)

// RequireRole ensures the agent has one of the allowed roles. No roles means
// any authenticated agent.
func RequireRole(allowed ...domain.AgentRole) fiber.Handler {
	allowedSet := make(map[domain.AgentRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		agent, ok := AgentFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[agent.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
