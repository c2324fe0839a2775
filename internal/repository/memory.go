package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/models"
	"gorm.io/datatypes"
)

// MemoryRefreshTokenRepository is an in-process RefreshTokenRepository with
// the same single-winner revoke semantics as the SQL adapter. It backs the
// service and handler tests.
type MemoryRefreshTokenRepository struct {
	mu      sync.Mutex
	records map[string]*models.RefreshToken
	length  int
	ttlDays int

	// Now is swappable so tests can move the clock.
	Now func() time.Time
}

func NewMemoryRefreshTokenRepository(length, ttlDays int) *MemoryRefreshTokenRepository {
	return &MemoryRefreshTokenRepository{
		records: make(map[string]*models.RefreshToken),
		length:  length,
		ttlDays: ttlDays,
		Now:     time.Now,
	}
}

func (r *MemoryRefreshTokenRepository) Generate(_ context.Context, userID uuid.UUID) (string, time.Time, error) {
	token, err := newOpaqueToken(r.length)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := r.Now().AddDate(0, 0, r.ttlDays)
	record := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: r.Now(),
	}

	r.mu.Lock()
	r.records[record.TokenHash] = record
	r.mu.Unlock()

	return token, expiresAt, nil
}

func (r *MemoryRefreshTokenRepository) FindValid(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[hashToken(token)]
	if !ok || !record.Valid(r.Now()) {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *MemoryRefreshTokenRepository) Revoke(_ context.Context, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[hashToken(token)]
	if !ok || record.RevokedAt != nil {
		return 0, nil
	}
	now := r.Now()
	record.RevokedAt = &now
	return 1, nil
}

func (r *MemoryRefreshTokenRepository) RevokeByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	for _, record := range r.records {
		if record.UserID == userID && record.RevokedAt == nil {
			record.RevokedAt = &now
		}
	}
	return nil
}

// MemoryUserRepository is an in-process UserRepository used by tests.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	links map[string]uuid.UUID // provider + "\x00" + providerUserID -> user id
	roles map[string]models.Role
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[uuid.UUID]*models.User),
		links: make(map[string]uuid.UUID),
		roles: make(map[string]models.Role),
	}
}

func linkKey(provider, providerUserID string) string {
	return provider + "\x00" + providerUserID
}

// SeedRole registers a role that CreateLocalUser/CreateOAuthUser can attach.
func (r *MemoryUserRepository) SeedRole(role models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role.Name] = role
}

// Put stores a user directly, for test fixtures.
func (r *MemoryUserRepository) Put(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) FindByAuthProvider(_ context.Context, provider, providerUserID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.links[linkKey(provider, providerUserID)]
	if !ok {
		return nil, nil
	}
	user, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) LinkAuthProvider(_ context.Context, userID uuid.UUID, provider, providerUserID string, _ datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[linkKey(provider, providerUserID)] = userID
	return nil
}

func (r *MemoryUserRepository) CreateLocalUser(_ context.Context, email, passwordHash string, roleNames []string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := &models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: passwordHash,
		IsActive: true,
		Roles:    r.resolveRoles(roleNames),
	}
	r.users[user.ID] = user
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) CreateOAuthUser(_ context.Context, input CreateOAuthUserInput) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roleNames := input.Roles
	if len(roleNames) == 0 {
		roleNames = []string{"USER"}
	}

	user := &models.User{
		ID:       uuid.New(),
		Email:    input.Email,
		Password: input.PasswordHash,
		IsActive: true,
		Roles:    r.resolveRoles(roleNames),
	}
	r.users[user.ID] = user
	r.links[linkKey(input.Provider, input.ProviderUserID)] = user.ID

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) ListAll(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, *user)
	}
	return users, nil
}

func (r *MemoryUserRepository) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[id]; ok {
		user.IsActive = false
	}
	return nil
}

// UserCount reports how many users exist, for duplicate-creation assertions.
func (r *MemoryUserRepository) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// LinkCount reports how many provider links exist.
func (r *MemoryUserRepository) LinkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

func (r *MemoryUserRepository) resolveRoles(names []string) []models.Role {
	roles := make([]models.Role, 0, len(names))
	for _, name := range names {
		if role, ok := r.roles[name]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}
