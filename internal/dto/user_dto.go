package dto

import "github.com/google/uuid"

// UserSummary is the listing projection for GET /users.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	IsActive bool      `json:"isActive"`
}
