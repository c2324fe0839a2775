package repository

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/models"
	"gorm.io/gorm"
)

// RefreshTokenRepository persists opaque refresh tokens. Implementations
// store only the SHA-256 hash of a token; the plaintext leaves Generate
// exactly once and is never retrievable afterwards.
type RefreshTokenRepository interface {
	// Generate mints a fresh token for the user and persists its hashed record.
	Generate(ctx context.Context, userID uuid.UUID) (token string, expiresAt time.Time, err error)

	// FindValid resolves a plaintext token to its record iff the record is
	// unrevoked and unexpired. Unknown, revoked and expired tokens all
	// return (nil, nil) without distinguishing the reason.
	FindValid(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke marks the matching non-revoked record as revoked and reports
	// how many rows changed. Zero means the token was already revoked or
	// never existed; callers that consume a token on rotation must treat
	// zero as "lost the race".
	Revoke(ctx context.Context, token string) (int64, error)

	// RevokeByUser revokes every currently-valid token owned by the user.
	RevokeByUser(ctx context.Context, userID uuid.UUID) error
}

// hashToken is the one-way mapping from plaintext token to stored hash.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// newOpaqueToken draws length hex characters from crypto/rand.
func newOpaqueToken(length int) (string, error) {
	raw := make([]byte, (length+1)/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(raw)[:length], nil
}

// GormRefreshTokenRepository is the PostgreSQL-backed store.
type GormRefreshTokenRepository struct {
	db      *gorm.DB
	length  int
	ttlDays int
}

func NewGormRefreshTokenRepository(db *gorm.DB, length, ttlDays int) *GormRefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db, length: length, ttlDays: ttlDays}
}

func (r *GormRefreshTokenRepository) Generate(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	token, err := newOpaqueToken(r.length)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().AddDate(0, 0, r.ttlDays)
	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return token, expiresAt, nil
}

func (r *GormRefreshTokenRepository) FindValid(ctx context.Context, token string) (*models.RefreshToken, error) {
	var record models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", hashToken(token), time.Now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	return &record, nil
}

func (r *GormRefreshTokenRepository) Revoke(ctx context.Context, token string) (int64, error) {
	// Conditional single-row update: of two racing callers, exactly one
	// observes rows-affected == 1.
	result := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashToken(token)).
		Update("revoked_at", time.Now())
	if result.Error != nil {
		return 0, fmt.Errorf("failed to revoke refresh token: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GormRefreshTokenRepository) RevokeByUser(ctx context.Context, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}
