package server

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"fambam/internal/middleware"
	"fambam/internal/service"

	"github.com/gofiber/fiber/v2"
)

const adminPath = "/admin"

// AdminRequired lets only admins through. Everyone else goes to denied.
func (s *Server) AdminRequired(denied fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.CurrentUserID(c)
		if userID == "" {
			return denied(c)
		}

		isAdmin, err := s.profileService.IsAdmin(c.UserContext(), userID)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "admin check failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return denied(c)
		}
		if !isAdmin {
			return denied(c)
		}
		return c.Next()
	}
}

func denyAdminForm(c *fiber.Ctx) error {
	return redirectWith(c, "/", "error", "Unauthorized")
}

// CleanupOldPosts handles POST /api/admin/cleanup-old-posts
// @Summary Delete old posts
// @Description Admin only. Deletes every post older than the given number of months, with its images.
// @Tags admin
// @Accept x-www-form-urlencoded
// @Param months formData int false "Age in months (default 6)"
// @Success 303 "Redirect to /admin?message= or /admin?error="
// @Router /admin/cleanup-old-posts [post]
func (s *Server) CleanupOldPosts(c *fiber.Ctx) error {
	months := service.DefaultRetentionMonths
	if raw := strings.TrimSpace(c.FormValue("months")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return redirectWith(c, adminPath, "error", "Months must be a whole number")
		}
		months = n
	}

	result, err := s.retentionService.PurgeOlderThan(c.UserContext(), months)
	if err != nil {
		return redirectError(c, adminPath, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "admin cleanup finished",
		slog.String("admin_id", middleware.CurrentUserID(c)),
		slog.Int("months", months),
		slog.Int("deleted", result.DeletedCount),
		slog.Int("failed", result.FailedCount),
	)
	return redirectWith(c, adminPath, "message", cleanupMessage(result))
}

func cleanupMessage(r *service.PurgeResult) string {
	if r.Candidates == 0 {
		return "No old posts to delete"
	}
	msg := fmt.Sprintf("Deleted %d posts", r.DeletedCount)
	if r.FailedCount > 0 {
		msg += fmt.Sprintf(" (%d failed)", r.FailedCount)
	}
	return msg
}
