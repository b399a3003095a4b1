package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helphub/internal/api/dto"
	"github.com/spec-kit/helphub/internal/auth"
	"github.com/spec-kit/helphub/internal/config"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// AuthHandler issues dashboard agent tokens.
type AuthHandler struct {
	cfg    config.AuthConfig
	tokens *auth.TokenManager
}

// NewAuthHandler constructs handler.
func NewAuthHandler(cfg config.AuthConfig, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{cfg: cfg, tokens: tokens}
}

// Login POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	if h.cfg.AgentPasswordHash == "" {
		return apperrors.NewUnauthorized("dashboard login is not configured")
	}
	if !strings.EqualFold(req.Email, h.cfg.AgentEmail) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(h.cfg.AgentPasswordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := h.tokens.GenerateToken(h.cfg.AgentEmail)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
