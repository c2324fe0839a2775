package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/randevuhub/randevu-backend/internal/ability"
	"github.com/randevuhub/randevu-backend/internal/config"
	"github.com/randevuhub/randevu-backend/internal/handlers"
	"github.com/randevuhub/randevu-backend/internal/middleware"
	"github.com/randevuhub/randevu-backend/internal/services"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	tokens *services.TokenService,
	auth *services.AuthService,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
	edevletEnabled bool,
) {
	app.Get("/health", healthHandler.Check)

	protect := func() []fiber.Handler {
		return []fiber.Handler{
			middleware.JWTProtected(cfg),
			middleware.LoadCurrentUser(tokens, auth),
		}
	}

	// Auth endpoints get a stricter sliding-window rate limit.
	authGroup := app.Group("/auth")
	authGroup.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/profile", append(protect(), authHandler.Profile)...)

	if edevletEnabled {
		authGroup.Get("/edevlet", authHandler.EdevletRedirect)
		authGroup.Get("/edevlet/callback", authHandler.EdevletCallback)
	}

	users := app.Group("/users", protect()...)
	users.Get("/", middleware.RequireAbility(ability.Read, ability.SubjectUser), userHandler.List)
	users.Patch("/:id/deactivate", middleware.RequireAbility(ability.Update, ability.SubjectUser), userHandler.Deactivate)
}
