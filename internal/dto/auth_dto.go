package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RoleSummary is the role projection embedded in authenticated-user payloads.
type RoleSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// AuthenticatedUser is the user projection returned to clients and carried
// through request context by the auth middleware.
type AuthenticatedUser struct {
	ID          uuid.UUID     `json:"id"`
	Email       string        `json:"email"`
	IsActive    bool          `json:"isActive"`
	Roles       []RoleSummary `json:"roles"`
	Permissions []string      `json:"permissions"`
}

// HasPermission reports whether the projection carries the named permission.
func (u *AuthenticatedUser) HasPermission(name string) bool {
	for _, p := range u.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// AuthSession is the full bundle produced by login/refresh: a signed access
// token plus the single plaintext disclosure of a fresh refresh token.
type AuthSession struct {
	AccessToken           string            `json:"accessToken"`
	TokenType             string            `json:"tokenType"`
	ExpiresIn             int               `json:"expiresIn"`
	RefreshToken          string            `json:"-"`
	RefreshTokenExpiresAt time.Time         `json:"refreshTokenExpiresAt"`
	User                  AuthenticatedUser `json:"user"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
