package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/dto"
	"github.com/randevuhub/randevu-backend/internal/repository"
)

// UserService serves the user listing and account-wide session termination.
type UserService struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
}

func NewUserService(users repository.UserRepository, tokens repository.RefreshTokenRepository) *UserService {
	return &UserService{users: users, tokens: tokens}
}

func (s *UserService) ListUsers(ctx context.Context) ([]dto.UserSummary, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, dto.UserSummary{
			ID:       user.ID,
			Email:    user.Email,
			IsActive: user.IsActive,
		})
	}
	return summaries, nil
}

// Deactivate flips the account inactive and revokes all of its live refresh
// tokens, so no session survives the deactivation.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.users.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.tokens.RevokeByUser(ctx, id)
}
