package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helphub/internal/api/dto"
	"github.com/spec-kit/helphub/internal/service"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// NotifyHandler relays dashboard messages to users through the chat adapter.
type NotifyHandler struct {
	notifications *service.NotificationService
}

// NewNotifyHandler constructs handler.
func NewNotifyHandler(notifications *service.NotificationService) *NotifyHandler {
	return &NotifyHandler{notifications: notifications}
}

// Notify POST /api/notify.
func (h *NotifyHandler) Notify(c *fiber.Ctx) error {
	var req dto.NotifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.UserRef) == "" || strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("user_ref and message required", nil)
	}
	if err := h.notifications.NotifyUser(c.UserContext(), req.UserRef, req.Message); err != nil {
		return apperrors.NewServiceUnavailable("chat transport", err)
	}
	return c.JSON(fiber.Map{"status": "sent"})
}
