package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/dto"
	"github.com/randevuhub/randevu-backend/internal/models"
	"github.com/randevuhub/randevu-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrOAuthProfile       = errors.New("oauth profile has no stable identifier")
)

// OAuthProfile is the normalized projection of an external identity
// provider's user info.
type OAuthProfile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Raw       []byte
}

// AuthService composes the credential verifier, token issuer and refresh
// token store into the login / refresh / logout session protocol.
type AuthService struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	issuer     *TokenService
	bcryptCost int
}

func NewAuthService(users repository.UserRepository, tokens repository.RefreshTokenRepository, issuer *TokenService, bcryptCost int) *AuthService {
	return &AuthService{users: users, tokens: tokens, issuer: issuer, bcryptCost: bcryptCost}
}

// ValidateUser checks email+password against the stored hash. It returns
// (nil, nil) for unknown email, inactive account and password mismatch
// alike, so callers cannot enumerate accounts.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) (*dto.AuthenticatedUser, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil
	}

	authUser := mapAuthenticatedUser(user)
	return &authUser, nil
}

// Register creates a local account with the default USER role and opens a
// session for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (*dto.AuthSession, error) {
	if len(email) == 0 || len(password) < 8 {
		return nil, errors.New("email required and password must be at least 8 characters")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateLocalUser(ctx, email, string(hash), []string{"USER"})
	if err != nil {
		return nil, err
	}

	authUser := mapAuthenticatedUser(user)
	return s.buildSession(ctx, &authUser)
}

// Login opens a session for an already-verified user.
func (s *AuthService) Login(ctx context.Context, user *dto.AuthenticatedUser) (*dto.AuthSession, error) {
	return s.buildSession(ctx, user)
}

// Refresh consumes a presented refresh token and issues a new pair. The
// presented token is revoked before the new pair is minted, so a token is
// never valid at the same time as its successor. Of two concurrent calls
// with the same token, the conditional revoke lets exactly one proceed.
func (s *AuthService) Refresh(ctx context.Context, token string) (*dto.AuthSession, error) {
	record, err := s.tokens.FindValid(ctx, token)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		if _, revokeErr := s.tokens.Revoke(ctx, token); revokeErr != nil {
			slog.Error("failed to revoke orphaned refresh token", "error", revokeErr)
		}
		return nil, ErrInvalidToken
	}

	consumed, err := s.tokens.Revoke(ctx, token)
	if err != nil {
		return nil, err
	}
	if consumed == 0 {
		// Another caller rotated or revoked it between lookup and here.
		return nil, ErrInvalidToken
	}

	authUser := mapAuthenticatedUser(user)
	return s.buildSession(ctx, &authUser)
}

// Logout revokes the presented token. It is idempotent and never fails from
// the caller's perspective; infrastructure errors are only logged.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if _, err := s.tokens.Revoke(ctx, token); err != nil {
		slog.Error("failed to revoke refresh token on logout", "error", err)
	}
}

// RevokeAllSessions terminates every live session of the user.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.RevokeByUser(ctx, userID)
}

// GetProfile re-reads the live user with roles and permissions, as opposed
// to the snapshot frozen into an access token at issuance.
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.AuthenticatedUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	authUser := mapAuthenticatedUser(user)
	return &authUser, nil
}

// HandleOAuthUser resolves an external identity to a local account:
// existing provider link first, then email-based linking, then a fresh
// OAuth-only account whose random password is never disclosed.
func (s *AuthService) HandleOAuthUser(ctx context.Context, provider string, profile *OAuthProfile) (*dto.AuthenticatedUser, error) {
	if profile == nil || profile.ID == "" {
		return nil, ErrOAuthProfile
	}

	user, err := s.users.FindByAuthProvider(ctx, provider, profile.ID)
	if err != nil {
		return nil, err
	}

	if user == nil && profile.Email != "" {
		user, err = s.users.FindByEmail(ctx, profile.Email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			if err := s.users.LinkAuthProvider(ctx, user.ID, provider, profile.ID, rawProfile(profile)); err != nil {
				return nil, err
			}
		}
	}

	if user == nil {
		email := profile.Email
		if email == "" {
			// Documented fallback for providers that withhold the email.
			email = fmt.Sprintf("%s@%s.local", profile.ID, strings.ToLower(provider))
		}

		passwordHash, err := s.randomPasswordHash()
		if err != nil {
			return nil, err
		}

		user, err = s.users.CreateOAuthUser(ctx, repository.CreateOAuthUserInput{
			Email:          email,
			PasswordHash:   passwordHash,
			Provider:       provider,
			ProviderUserID: profile.ID,
			Profile:        rawProfile(profile),
		})
		if err != nil {
			return nil, err
		}
	}

	authUser := mapAuthenticatedUser(user)
	return &authUser, nil
}

func (s *AuthService) buildSession(ctx context.Context, user *dto.AuthenticatedUser) (*dto.AuthSession, error) {
	accessToken, expiresIn, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiresAt, err := s.tokens.Generate(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.AuthSession{
		AccessToken:           accessToken,
		TokenType:             "Bearer",
		ExpiresIn:             expiresIn,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: refreshExpiresAt,
		User:                  *user,
	}, nil
}

// randomPasswordHash produces a hash of a throwaway random password for
// OAuth-only accounts; local password login is not a capability for them.
func (s *AuthService) randomPasswordHash() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(raw)), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash random password: %w", err)
	}
	return string(hash), nil
}

func rawProfile(profile *OAuthProfile) datatypes.JSON {
	if len(profile.Raw) == 0 {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(profile.Raw)
}

func mapAuthenticatedUser(user *models.User) dto.AuthenticatedUser {
	roles := make([]dto.RoleSummary, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, dto.RoleSummary{ID: role.ID, Name: role.Name})
	}

	return dto.AuthenticatedUser{
		ID:          user.ID,
		Email:       user.Email,
		IsActive:    user.IsActive,
		Roles:       roles,
		Permissions: user.PermissionNames(),
	}
}
