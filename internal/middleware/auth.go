package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/randevuhub/randevu-backend/internal/config"
	"github.com/randevuhub/randevu-backend/internal/dto"
	"github.com/randevuhub/randevu-backend/internal/services"
)

const currentUserKey = "currentUser"

// JWTProtected rejects requests without a bearer token carrying a valid
// signature and expiry. Issuer/audience and live user state are checked by
// LoadCurrentUser, which must follow it in the chain.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// LoadCurrentUser re-validates the full claim set (issuer, audience) and
// swaps the stale token snapshot for the live user, rejecting tokens whose
// owner has vanished or been deactivated since issuance.
func LoadCurrentUser(tokens *services.TokenService, auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return unauthorized(c)
		}

		claims, err := tokens.VerifyAccessToken(token.Raw)
		if err != nil {
			return unauthorized(c)
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return unauthorized(c)
		}

		user, err := auth.GetProfile(c.UserContext(), userID)
		if err != nil || !user.IsActive {
			return unauthorized(c)
		}

		c.Locals(currentUserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the live user stored by LoadCurrentUser, or nil.
func CurrentUser(c *fiber.Ctx) *dto.AuthenticatedUser {
	user, _ := c.Locals(currentUserKey).(*dto.AuthenticatedUser)
	return user
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Unauthorized",
	})
}
