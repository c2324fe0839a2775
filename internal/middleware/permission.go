package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/randevuhub/randevu-backend/internal/ability"
	"github.com/randevuhub/randevu-backend/internal/dto"
)

// RequireAbility gates a route on the current user's live permission set.
// It must run after LoadCurrentUser.
func RequireAbility(action ability.Action, subject ability.Subject) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c)
		}

		if !ability.ForUser(user).Can(action, subject) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Insufficient permissions",
			})
		}
		return c.Next()
	}
}
