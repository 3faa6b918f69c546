package server

import (
	"strconv"

	"fambam/internal/middleware"
	"fambam/internal/models"
	"fambam/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List the feed
// @Description Newest posts first, each with its author. Page with the next_cursor of the previous page.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (default 50, max 100)"
// @Param before query string false "RFC3339 cursor: only posts created before this instant"
// @Success 200 {object} service.FeedPage
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	before, err := parseCursor(c)
	if err != nil {
		return respondErr(c, err)
	}

	page, err := s.postService.ListPosts(c.UserContext(), c.QueryInt("limit", service.DefaultFeedLimit), before)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(page)
}

// CreatePost handles POST /api/posts
// @Summary Compose a post
// @Description Upload up to 4 images, then create the post. Send redirect=1 to get a redirect instead of JSON.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param content formData string false "Post text"
// @Param files formData file false "Images (up to 4)"
// @Param redirect formData string false "1 for a redirect answer"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	redirect := wantsRedirect(c)

	files, err := formFiles(c, "files", "files[]")
	if err == nil {
		var post *models.Post
		post, err = s.postService.ComposePost(c.UserContext(), service.ComposePostInput{
			AuthorID: middleware.CurrentUserID(c),
			Content:  c.FormValue("content"),
			Files:    files,
		})
		if err == nil {
			if redirect {
				return c.Redirect("/", fiber.StatusSeeOther)
			}
			return c.Status(fiber.StatusCreated).JSON(post)
		}
	}

	if redirect {
		return redirectError(c, "/", err)
	}
	return respondErr(c, err)
}

// DeletePostForm handles POST /api/posts/:id/delete
// @Summary Delete a post
// @Description Owner or admin only. Removes the post's images, then the post with its comments and reactions.
// @Tags posts
// @Param id path int true "Post ID"
// @Success 303 "Redirect to / or /?error="
// @Router /posts/{id}/delete [post]
func (s *Server) DeletePostForm(c *fiber.Ctx) error {
	postID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || postID == 0 {
		return redirectWith(c, "/", "error", "Invalid post ID")
	}

	if err := s.postService.DeletePost(c.UserContext(), middleware.CurrentUserID(c), uint(postID)); err != nil {
		return redirectError(c, "/", err)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}
