package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/config"
	"github.com/randevuhub/randevu-backend/internal/dto"
	"github.com/randevuhub/randevu-backend/internal/handlers"
	"github.com/randevuhub/randevu-backend/internal/models"
	"github.com/randevuhub/randevu-backend/internal/repository"
	"github.com/randevuhub/randevu-backend/internal/routes"
	"github.com/randevuhub/randevu-backend/internal/services"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUserEmail    = "a@x.com"
	testUserPassword = "Secret123"
	refreshCookie    = "refresh_token"
)

type testEnv struct {
	app   *fiber.App
	users *repository.MemoryUserRepository
	admin *models.User
	user  *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:             "test-secret",
		JWTIssuer:             "randevu-backend",
		JWTAudience:           "randevu-clients",
		AccessTokenTTLSeconds: 3600,
		RefreshTokenLength:    64,
		RefreshTokenTTLDays:   7,
		BcryptCost:            bcrypt.MinCost,
		Env:                   "test",
	}

	readPermission := models.Permission{ID: uuid.New(), Name: "USER_READ"}
	updatePermission := models.Permission{ID: uuid.New(), Name: "USER_UPDATE"}

	userRole := models.Role{ID: uuid.New(), Name: "USER", Permissions: []models.Permission{readPermission}}
	adminRole := models.Role{
		ID:   uuid.New(),
		Name: "ADMIN",
		Permissions: []models.Permission{
			readPermission,
			updatePermission,
			{ID: uuid.New(), Name: "USER_CREATE"},
			{ID: uuid.New(), Name: "USER_DELETE"},
		},
	}

	users := repository.NewMemoryUserRepository()
	users.SeedRole(userRole)
	users.SeedRole(adminRole)

	tokens := repository.NewMemoryRefreshTokenRepository(cfg.RefreshTokenLength, cfg.RefreshTokenTTLDays)
	tokenService := services.NewTokenService(cfg)
	authService := services.NewAuthService(users, tokens, tokenService, cfg.BcryptCost)
	userService := services.NewUserService(users, tokens)

	hash, err := bcrypt.GenerateFromPassword([]byte(testUserPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	user := &models.User{ID: uuid.New(), Email: testUserEmail, Password: string(hash), IsActive: true, Roles: []models.Role{userRole}}
	users.Put(user)

	admin := &models.User{ID: uuid.New(), Email: "admin@randevu.local", Password: string(hash), IsActive: true, Roles: []models.Role{adminRole}}
	users.Put(admin)

	app := fiber.New()
	authHandler := handlers.NewAuthHandler(cfg, authService, nil)
	userHandler := handlers.NewUserHandler(userService)
	healthHandler := handlers.NewHealthHandler()
	routes.Setup(app, cfg, tokenService, authService, authHandler, userHandler, healthHandler, false)

	return &testEnv{app: app, users: users, admin: admin, user: user}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) *http.Response {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func extractCookie(t *testing.T, resp *http.Response, name string) string {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func decodeSession(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestLoginRefreshRotationFlow(t *testing.T) {
	env := newTestEnv(t)

	loginResp := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: testUserEmail, Password: testUserPassword}, nil)
	if loginResp.StatusCode != http.StatusCreated {
		t.Fatalf("login status: %d", loginResp.StatusCode)
	}

	session := decodeSession(t, loginResp)
	accessToken, _ := session["accessToken"].(string)
	if accessToken == "" {
		t.Fatal("login must return a non-empty accessToken")
	}
	if tokenType, _ := session["tokenType"].(string); tokenType != "Bearer" {
		t.Fatalf("unexpected tokenType: %v", session["tokenType"])
	}
	userPayload, ok := session["user"].(map[string]any)
	if !ok || userPayload["email"] != testUserEmail {
		t.Fatalf("user projection missing or wrong: %v", session["user"])
	}
	if raw, _ := json.Marshal(session); strings.Contains(string(raw), "refreshToken\"") {
		t.Fatal("refresh token must not appear in the response body")
	}

	loginCookie := extractCookie(t, loginResp, refreshCookie)
	if loginCookie == "" {
		t.Fatal("login must set the refresh_token cookie")
	}

	refreshResp := env.do(t, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"Cookie": refreshCookie + "=" + loginCookie,
	})
	if refreshResp.StatusCode != http.StatusCreated {
		t.Fatalf("refresh status: %d", refreshResp.StatusCode)
	}

	rotatedCookie := extractCookie(t, refreshResp, refreshCookie)
	if rotatedCookie == "" || rotatedCookie == loginCookie {
		t.Fatal("refresh must rotate the cookie to a fresh value")
	}

	// Replaying the consumed cookie is unauthorized forever.
	replayResp := env.do(t, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"Cookie": refreshCookie + "=" + loginCookie,
	})
	if replayResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replay status: %d", replayResp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: testUserEmail, Password: "WrongPass1"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "ghost@x.com", Password: testUserPassword}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", resp.StatusCode)
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/refresh", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	env := newTestEnv(t)

	loginResp := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: testUserEmail, Password: testUserPassword}, nil)
	cookie := extractCookie(t, loginResp, refreshCookie)

	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodPost, "/auth/logout", nil, map[string]string{
			"Cookie": refreshCookie + "=" + cookie,
		})
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("logout %d status: %d", i, resp.StatusCode)
		}
	}

	// Without any cookie at all, logout still succeeds.
	resp := env.do(t, http.MethodPost, "/auth/logout", nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cookieless logout status: %d", resp.StatusCode)
	}

	// The revoked cookie cannot be used for refresh.
	refreshResp := env.do(t, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"Cookie": refreshCookie + "=" + cookie,
	})
	if refreshResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status: %d", refreshResp.StatusCode)
	}
}

func TestProfileRequiresValidBearer(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/auth/profile", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status: %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/auth/profile", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status: %d", resp.StatusCode)
	}

	loginResp := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: testUserEmail, Password: testUserPassword}, nil)
	session := decodeSession(t, loginResp)
	accessToken, _ := session["accessToken"].(string)

	resp = env.do(t, http.MethodGet, "/auth/profile", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status: %d", resp.StatusCode)
	}

	var profile dto.AuthenticatedUser
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Email != testUserEmail {
		t.Fatalf("unexpected profile email: %s", profile.Email)
	}
}

func TestProfileRejectsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)

	loginResp := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: testUserEmail, Password: testUserPassword}, nil)
	session := decodeSession(t, loginResp)
	accessToken, _ := session["accessToken"].(string)

	env.user.IsActive = false
	env.users.Put(env.user)

	resp := env.do(t, http.MethodGet, "/auth/profile", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("deactivated user profile status: %d", resp.StatusCode)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", dto.RegisterRequest{Email: "fresh@x.com", Password: "Secret123"}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	if extractCookie(t, resp, refreshCookie) == "" {
		t.Fatal("register must set the refresh cookie")
	}

	resp = env.do(t, http.MethodPost, "/auth/register", dto.RegisterRequest{Email: "fresh@x.com", Password: "Secret123"}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status: %d", resp.StatusCode)
	}
}

func TestUserListingPermissionGate(t *testing.T) {
	env := newTestEnv(t)

	// A user with no roles holds no permissions at all.
	hash, _ := bcrypt.GenerateFromPassword([]byte(testUserPassword), bcrypt.MinCost)
	bare := &models.User{ID: uuid.New(), Email: "bare@x.com", Password: string(hash), IsActive: true}
	env.users.Put(bare)

	loginResp := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "bare@x.com", Password: testUserPassword}, nil)
	session := decodeSession(t, loginResp)
	bareToken, _ := session["accessToken"].(string)

	resp := env.do(t, http.MethodGet, "/users", nil, map[string]string{
		"Authorization": "Bearer " + bareToken,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without USER_READ, got %d", resp.StatusCode)
	}

	adminLogin := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "admin@randevu.local", Password: testUserPassword}, nil)
	adminSession := decodeSession(t, adminLogin)
	adminToken, _ := adminSession["accessToken"].(string)

	resp = env.do(t, http.MethodGet, "/users", nil, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with USER_READ, got %d", resp.StatusCode)
	}

	var summaries []dto.UserSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode summaries: %v", err)
	}
	if len(summaries) < 3 {
		t.Fatalf("expected at least 3 users, got %d", len(summaries))
	}
}

func TestDeactivateTerminatesSessions(t *testing.T) {
	env := newTestEnv(t)

	userLogin := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: testUserEmail, Password: testUserPassword}, nil)
	userCookie := extractCookie(t, userLogin, refreshCookie)

	adminLogin := env.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "admin@randevu.local", Password: testUserPassword}, nil)
	adminSession := decodeSession(t, adminLogin)
	adminToken, _ := adminSession["accessToken"].(string)

	resp := env.do(t, http.MethodPatch, "/users/"+env.user.ID.String()+"/deactivate", nil, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("deactivate status: %d", resp.StatusCode)
	}

	// The deactivated user's refresh token is dead.
	refreshResp := env.do(t, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"Cookie": refreshCookie + "=" + userCookie,
	})
	if refreshResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after deactivation status: %d", refreshResp.StatusCode)
	}

	// Deactivating an unknown user is a 404.
	resp = env.do(t, http.MethodPatch, "/users/"+uuid.NewString()+"/deactivate", nil, map[string]string{
		"Authorization": "Bearer " + adminToken,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user deactivate status: %d", resp.StatusCode)
	}
}
