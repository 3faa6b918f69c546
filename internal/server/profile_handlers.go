package server

import (
	"fambam/internal/middleware"
	"fambam/internal/service"
	"fambam/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const profileEditPath = "/profile/edit"

// GetMyProfile handles GET /api/profiles/me
// @Summary Own profile
// @Tags profiles
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} models.ErrorResponse
// @Router /profiles/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetProfile(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(profile)
}

// GetProfile handles GET /api/profiles/:id
// @Summary Get a profile
// @Tags profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetProfile(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(profile)
}

// GetProfilePosts handles GET /api/profiles/:id/posts
// @Summary Posts by one profile
// @Description Newest first, paged like the feed
// @Tags profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Param limit query int false "Page size (default 50, max 100)"
// @Param before query string false "RFC3339 cursor"
// @Success 200 {object} service.FeedPage
// @Router /profiles/{id}/posts [get]
func (s *Server) GetProfilePosts(c *fiber.Ctx) error {
	before, err := parseCursor(c)
	if err != nil {
		return respondErr(c, err)
	}

	page, err := s.postService.ListProfilePosts(c.UserContext(), c.Params("id"),
		c.QueryInt("limit", service.DefaultFeedLimit), before)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(page)
}

// UpdateProfileForm handles POST /api/profile/update
// @Summary Update own profile
// @Description Display name, bio and an optional avatar image (max 5MB)
// @Tags profiles
// @Accept multipart/form-data
// @Param display_name formData string true "Display name"
// @Param bio formData string false "Bio; empty clears it"
// @Param avatar formData file false "Avatar image"
// @Success 303 "Redirect to /profile/edit?message= or /profile/edit?error="
// @Router /profile/update [post]
func (s *Server) UpdateProfileForm(c *fiber.Ctx) error {
	var form validation.ProfileForm
	if err := c.BodyParser(&form); err != nil {
		return redirectWith(c, profileEditPath, "error", "Display name is required")
	}
	form.Normalize()
	if err := s.validator.Check(form, validation.ProfileMessages); err != nil {
		return redirectError(c, profileEditPath, err)
	}

	in := service.UpdateProfileInput{DisplayName: form.DisplayName, Bio: form.Bio}

	files, err := formFiles(c, "avatar")
	if err != nil {
		return redirectError(c, profileEditPath, err)
	}
	if len(files) > 0 {
		in.Avatar = &files[0]
	}

	if _, err := s.profileService.UpdateProfile(c.UserContext(), middleware.CurrentUserID(c), in); err != nil {
		return redirectError(c, profileEditPath, err)
	}
	return redirectWith(c, profileEditPath, "message", "Profile updated successfully")
}
