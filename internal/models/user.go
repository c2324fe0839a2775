package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// User is the identity record. Accounts are deactivated, never hard-deleted,
// so refresh-token and provider-link history stays referentially intact.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email         string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password      string         `gorm:"not null" json:"-"`
	IsActive      bool           `gorm:"not null;default:true" json:"isActive"`
	Roles         []Role         `gorm:"many2many:user_roles" json:"roles,omitempty"`
	AuthProviders []AuthProvider `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// RoleNames returns the names of all roles the user belongs to.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}

// PermissionNames returns the deduplicated union of permission names
// across all of the user's roles.
func (u *User) PermissionNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, role := range u.Roles {
		for _, permission := range role.Permissions {
			if _, ok := seen[permission.Name]; ok {
				continue
			}
			seen[permission.Name] = struct{}{}
			names = append(names, permission.Name)
		}
	}
	return names
}

// Role is a named permission bundle (ADMIN, USER, ...).
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string       `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description string       `gorm:"size:255" json:"description"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Permission is an atomic capability string, e.g. USER_READ.
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthProvider binds an external identity (provider, provider-side user id)
// to exactly one local user.
type AuthProvider struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Provider       string         `gorm:"size:50;not null;uniqueIndex:idx_auth_providers_identity" json:"provider"`
	ProviderUserID string         `gorm:"size:255;not null;uniqueIndex:idx_auth_providers_identity" json:"provider_user_id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Profile        datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
}
