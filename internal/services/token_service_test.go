package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/dto"
)

func testAuthenticatedUser() *dto.AuthenticatedUser {
	return &dto.AuthenticatedUser{
		ID:       uuid.New(),
		Email:    "a@x.com",
		IsActive: true,
		Roles: []dto.RoleSummary{
			{ID: uuid.New(), Name: "ADMIN"},
		},
		Permissions: []string{"USER_READ", "ROLE_MANAGE"},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testConfig())
	user := testAuthenticatedUser()

	token, expiresIn, err := svc.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expected 3600s lifetime, got %d", expiresIn)
	}

	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Fatalf("subject mismatch: %s", claims.Subject)
	}
	if claims.Email != "a@x.com" {
		t.Fatalf("email mismatch: %s", claims.Email)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "ADMIN" {
		t.Fatalf("roles mismatch: %v", claims.Roles)
	}
	if len(claims.Permissions) != 2 {
		t.Fatalf("permissions mismatch: %v", claims.Permissions)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	svc := NewTokenService(testConfig())
	user := testAuthenticatedUser()

	// Different secret.
	otherSecret := testConfig()
	otherSecret.JWTSecret = "other-secret"
	token, _, err := NewTokenService(otherSecret).IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.VerifyAccessToken(token); err == nil {
		t.Fatal("token signed with a different secret must be rejected")
	}

	// Different issuer.
	otherIssuer := testConfig()
	otherIssuer.JWTIssuer = "someone-else"
	token, _, err = NewTokenService(otherIssuer).IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.VerifyAccessToken(token); err == nil {
		t.Fatal("token with a foreign issuer must be rejected")
	}

	// Different audience.
	otherAudience := testConfig()
	otherAudience.JWTAudience = "other-clients"
	token, _, err = NewTokenService(otherAudience).IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.VerifyAccessToken(token); err == nil {
		t.Fatal("token with a foreign audience must be rejected")
	}

	// Garbage.
	if _, err := svc.VerifyAccessToken("not-a-jwt"); err == nil {
		t.Fatal("malformed token must be rejected")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTLSeconds = -60
	expired := NewTokenService(cfg)

	token, _, err := expired.IssueAccessToken(testAuthenticatedUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewTokenService(testConfig()).VerifyAccessToken(token); err == nil {
		t.Fatal("expired token must be rejected")
	}
}
