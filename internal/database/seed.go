package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bootstrapAdminEmail = "admin@randevu.local"

// Bootstrap password for the seeded admin; expected to be changed on first
// login in any real deployment.
const bootstrapAdminPassword = "123123"

var seedPermissions = []models.Permission{
	{Name: "USER_CREATE", Description: "Kullanici olusturma yetkisi"},
	{Name: "USER_READ", Description: "Kullanicilari goruntuleme yetkisi"},
	{Name: "USER_UPDATE", Description: "Kullanici guncelleme yetkisi"},
	{Name: "USER_DELETE", Description: "Kullanici silme yetkisi"},
	{Name: "ROLE_MANAGE", Description: "Rolleri yonetme yetkisi"},
	{Name: "PERMISSION_MANAGE", Description: "Yetkileri yonetme yetkisi"},
}

// Seed provisions the permission catalog, the ADMIN and USER roles and a
// bootstrap admin account. It is idempotent and safe to run on every start.
func Seed(bcryptCost int) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		permissions := make([]models.Permission, 0, len(seedPermissions))
		for _, p := range seedPermissions {
			permission := models.Permission{ID: uuid.New(), Name: p.Name, Description: p.Description}
			if err := tx.Where(models.Permission{Name: p.Name}).
				Attrs(permission).
				FirstOrCreate(&permission).Error; err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", p.Name, err)
			}
			permissions = append(permissions, permission)
		}

		adminRole, err := seedRole(tx, "ADMIN", "Sistem yoneticisi", permissions)
		if err != nil {
			return err
		}

		userPermissions := make([]models.Permission, 0, 1)
		for _, p := range permissions {
			if p.Name == "USER_READ" {
				userPermissions = append(userPermissions, p)
			}
		}
		if _, err := seedRole(tx, "USER", "Standart kullanici", userPermissions); err != nil {
			return err
		}

		var admin models.User
		err = tx.Where("email = ?", bootstrapAdminEmail).First(&admin).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up admin user: %w", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(bootstrapAdminPassword), bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}

		admin = models.User{
			ID:       uuid.New(),
			Email:    bootstrapAdminEmail,
			Password: string(hash),
			IsActive: true,
			Roles:    []models.Role{*adminRole},
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}

		slog.Info("seeded bootstrap admin user", "email", bootstrapAdminEmail)
		return nil
	})
}

func seedRole(tx *gorm.DB, name, description string, permissions []models.Permission) (*models.Role, error) {
	role := models.Role{ID: uuid.New(), Name: name, Description: description}
	if err := tx.Where(models.Role{Name: name}).
		Attrs(role).
		FirstOrCreate(&role).Error; err != nil {
		return nil, fmt.Errorf("failed to seed role %s: %w", name, err)
	}

	if err := tx.Model(&role).Association("Permissions").Replace(&permissions); err != nil {
		return nil, fmt.Errorf("failed to bind permissions to role %s: %w", name, err)
	}
	return &role, nil
}
