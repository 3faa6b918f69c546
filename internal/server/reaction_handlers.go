package server

import (
	"fambam/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type reactionRequest struct {
	Type string `json:"type" form:"type"`
}

// GetReactions handles GET /api/posts/:id/reactions
// @Summary Reaction summary
// @Description Counts per kind and the first few names. Includes the caller's own reaction when signed in.
// @Tags reactions
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.ReactionSummary
// @Router /posts/{id}/reactions [get]
func (s *Server) GetReactions(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	summary, err := s.reactionService.Summary(c.UserContext(), postID, middleware.CurrentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(summary)
}

// SetReaction handles POST /api/posts/:id/reactions
// @Summary React to a post
// @Description Sending the kind already held removes it; a different kind replaces it.
// @Tags reactions
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body reactionRequest true "Reaction kind: like, love, laugh or celebrate"
// @Success 200 {object} service.ReactionResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/reactions [post]
func (s *Server) SetReaction(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req reactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := s.reactionService.SetReaction(c.UserContext(), postID, middleware.CurrentUserID(c), req.Type)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(result)
}
