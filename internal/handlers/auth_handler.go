package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/randevuhub/randevu-backend/internal/config"
	"github.com/randevuhub/randevu-backend/internal/dto"
	"github.com/randevuhub/randevu-backend/internal/middleware"
	"github.com/randevuhub/randevu-backend/internal/services"
)

const (
	refreshCookieName = "refresh_token"
	stateCookieName   = "edevlet_oauth_state"
)

type AuthHandler struct {
	cfg     *config.Config
	auth    *services.AuthService
	edevlet *services.EdevletService
}

// NewAuthHandler wires the session endpoints. edevlet may be nil when the
// federation adapter is not configured; its routes are then not registered.
func NewAuthHandler(cfg *config.Config, auth *services.AuthService, edevlet *services.EdevletService) *AuthHandler {
	return &AuthHandler{cfg: cfg, auth: auth, edevlet: edevlet}
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	sameSite := fiber.CookieSameSiteLaxMode
	if h.cfg.IsProduction() {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: sameSite,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	sameSite := fiber.CookieSameSiteLaxMode
	if h.cfg.IsProduction() {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: sameSite,
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	session, err := h.auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	h.setRefreshCookie(c, session.RefreshToken, session.RefreshTokenExpiresAt)
	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	user, err := h.auth.ValidateUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return internalError(c, "login failed", err)
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: services.ErrInvalidCredentials.Error(),
		})
	}

	session, err := h.auth.Login(c.UserContext(), user)
	if err != nil {
		return internalError(c, "login failed", err)
	}

	h.setRefreshCookie(c, session.RefreshToken, session.RefreshTokenExpiresAt)
	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(refreshCookieName)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Refresh token missing",
		})
	}

	session, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c, "refresh failed", err)
	}

	h.setRefreshCookie(c, session.RefreshToken, session.RefreshTokenExpiresAt)
	return c.Status(fiber.StatusCreated).JSON(session)
}

// Logout always succeeds from the client's perspective: the cookie is
// cleared and a present token is revoked, valid or not.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(refreshCookieName)
	h.clearRefreshCookie(c)
	h.auth.Logout(c.UserContext(), token)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	profile, err := h.auth.GetProfile(c.UserContext(), user.ID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c, "profile lookup failed", err)
	}

	return c.JSON(profile)
}

// EdevletRedirect sends the browser to the provider with a fresh state token.
func (h *AuthHandler) EdevletRedirect(c *fiber.Ctx) error {
	state, err := services.NewStateToken()
	if err != nil {
		return internalError(c, "state generation failed", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/edevlet",
		MaxAge:   600,
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect(h.edevlet.AuthCodeURL(state), fiber.StatusFound)
}

// EdevletCallback completes the code exchange and opens a local session,
// returning the same bundle shape as /auth/login.
func (h *AuthHandler) EdevletCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookieName) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid oauth state",
		})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Missing authorization code",
		})
	}

	token, err := h.edevlet.Exchange(c.UserContext(), code)
	if err != nil {
		slog.Error("e-Devlet exchange failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "e-Devlet authentication failed",
		})
	}

	profile, err := h.edevlet.FetchProfile(c.UserContext(), token)
	if err != nil {
		slog.Error("e-Devlet profile fetch failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "e-Devlet authentication failed",
		})
	}

	user, err := h.auth.HandleOAuthUser(c.UserContext(), services.ProviderEdevlet, profile)
	if err != nil {
		if errors.Is(err, services.ErrOAuthProfile) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "e-Devlet authentication failed",
			})
		}
		return internalError(c, "e-Devlet login failed", err)
	}

	session, err := h.auth.Login(c.UserContext(), user)
	if err != nil {
		return internalError(c, "e-Devlet login failed", err)
	}

	h.setRefreshCookie(c, session.RefreshToken, session.RefreshTokenExpiresAt)
	return c.Status(fiber.StatusCreated).JSON(session)
}

func internalError(c *fiber.Ctx, message string, err error) error {
	slog.Error(message, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
