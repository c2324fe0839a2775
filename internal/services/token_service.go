package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/randevuhub/randevu-backend/internal/config"
	"github.com/randevuhub/randevu-backend/internal/dto"
)

// AccessClaims is the signed snapshot carried by an access token. Roles and
// permissions reflect the user at issuance time; staleness is bounded by the
// token TTL, never by later role edits.
type AccessClaims struct {
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies HS256 access tokens.
type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	ttlSeconds int
}

func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		ttlSeconds: cfg.AccessTokenTTLSeconds,
	}
}

// IssueAccessToken signs a token for the user and returns it with its
// lifetime in seconds.
func (s *TokenService) IssueAccessToken(user *dto.AuthenticatedUser) (string, int, error) {
	now := time.Now()

	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}

	claims := AccessClaims{
		Email:       user.Email,
		Roles:       roles,
		Permissions: user.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.ttlSeconds) * time.Second)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, s.ttlSeconds, nil
}

// VerifyAccessToken checks signature, expiry, issuer and audience together;
// failing any one of them rejects the token.
func (s *TokenService) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	return claims, nil
}
