package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateOAuthUserInput carries everything needed to provision an account for
// an external identity in one shot: the user row, its default roles and the
// provider link.
type CreateOAuthUserInput struct {
	Email          string
	PasswordHash   string
	Provider       string
	ProviderUserID string
	Profile        datatypes.JSON
	Roles          []string
}

// UserRepository abstracts user persistence. Expected-absence cases return
// (nil, nil) rather than an error.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByAuthProvider(ctx context.Context, provider, providerUserID string) (*models.User, error)
	LinkAuthProvider(ctx context.Context, userID uuid.UUID, provider, providerUserID string, profile datatypes.JSON) error
	CreateLocalUser(ctx context.Context, email, passwordHash string, roles []string) (*models.User, error)
	CreateOAuthUser(ctx context.Context, input CreateOAuthUserInput) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// GormUserRepository is the PostgreSQL-backed user store.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Preload("AuthProviders")
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.withRelations(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.withRelations(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by id: %w", err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByAuthProvider(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	var link models.AuthProvider
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up auth provider link: %w", err)
	}
	return r.FindByID(ctx, link.UserID)
}

func (r *GormUserRepository) LinkAuthProvider(ctx context.Context, userID uuid.UUID, provider, providerUserID string, profile datatypes.JSON) error {
	link := models.AuthProvider{
		ID:             uuid.New(),
		Provider:       provider,
		ProviderUserID: providerUserID,
		UserID:         userID,
		Profile:        profile,
	}
	if err := r.db.WithContext(ctx).Create(&link).Error; err != nil {
		return fmt.Errorf("failed to link auth provider: %w", err)
	}
	return nil
}

func (r *GormUserRepository) CreateLocalUser(ctx context.Context, email, passwordHash string, roleNames []string) (*models.User, error) {
	user := models.User{ID: uuid.New(), Email: email, Password: passwordHash, IsActive: true}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var roles []models.Role
		if err := tx.Where("name IN ?", roleNames).Find(&roles).Error; err != nil {
			return err
		}
		user.Roles = roles
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return r.FindByID(ctx, user.ID)
}

func (r *GormUserRepository) CreateOAuthUser(ctx context.Context, input CreateOAuthUserInput) (*models.User, error) {
	roleNames := input.Roles
	if len(roleNames) == 0 {
		roleNames = []string{"USER"}
	}

	user := models.User{ID: uuid.New(), Email: input.Email, Password: input.PasswordHash, IsActive: true}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var roles []models.Role
		if err := tx.Where("name IN ?", roleNames).Find(&roles).Error; err != nil {
			return err
		}
		user.Roles = roles
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		link := models.AuthProvider{
			ID:             uuid.New(),
			Provider:       input.Provider,
			ProviderUserID: input.ProviderUserID,
			UserID:         user.ID,
			Profile:        input.Profile,
		}
		return tx.Create(&link).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}

	return r.FindByID(ctx, user.ID)
}

func (r *GormUserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *GormUserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}
