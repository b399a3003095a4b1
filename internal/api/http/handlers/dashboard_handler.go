package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helphub/internal/api/dto"
	"github.com/spec-kit/helphub/internal/service"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// DashboardHandler serves aggregate views for the dashboard UI.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.dashboard.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// CategoryDistribution GET /api/dashboard/categories.
func (h *DashboardHandler) CategoryDistribution(c *fiber.Ctx) error {
	dist, err := h.dashboard.CategoryDistribution(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dist})
}

// PriorityDistribution GET /api/dashboard/priorities.
func (h *DashboardHandler) PriorityDistribution(c *fiber.Ctx) error {
	dist, err := h.dashboard.PriorityDistribution(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dist})
}

// RecentActivity GET /api/dashboard/activity.
func (h *DashboardHandler) RecentActivity(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), 20)
	entries, err := h.dashboard.RecentActivity(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// RootCause POST /api/dashboard/root-cause.
func (h *DashboardHandler) RootCause(c *fiber.Ctx) error {
	var req dto.RootCauseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Category == "" {
		return apperrors.NewValidationError("category required", nil)
	}
	analysis, err := h.dashboard.RootCause(c.UserContext(), req.Category, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RootCauseResponse{Category: req.Category, Analysis: analysis}})
}
