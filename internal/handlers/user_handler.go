package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/randevuhub/randevu-backend/internal/dto"
	"github.com/randevuhub/randevu-backend/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	summaries, err := h.users.ListUsers(c.UserContext())
	if err != nil {
		return internalError(c, "user listing failed", err)
	}
	return c.JSON(summaries)
}

// Deactivate disables the account and terminates all of its sessions.
func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user id",
		})
	}

	if err := h.users.Deactivate(c.UserContext(), id); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c, "user deactivation failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
