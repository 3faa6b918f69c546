package server

import (
	"errors"
	"log/slog"
	"strings"

	"fambam/internal/identity"
	"fambam/internal/middleware"
	"fambam/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// SignIn handles POST /api/auth/signin
// @Summary Sign in
// @Description Check email and password, set the session cookies and redirect home
// @Tags auth
// @Accept x-www-form-urlencoded
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Success 303 "Redirect to / or /login?error="
// @Router /auth/signin [post]
func (s *Server) SignIn(c *fiber.Ctx) error {
	var form validation.SignInForm
	if err := c.BodyParser(&form); err != nil {
		return redirectWith(c, "/login", "error", "Email and password are required")
	}
	form.Normalize()
	if err := s.validator.Check(form, validation.SignInMessages); err != nil {
		return redirectError(c, "/login", err)
	}

	ctx := c.UserContext()
	session, err := s.identity.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return redirectWith(c, "/login", "error", "Invalid login credentials")
		}
		middleware.Logger.ErrorContext(ctx, "sign in failed", slog.String("error", err.Error()))
		return redirectWith(c, "/login", "error", "Something went wrong")
	}

	// Accounts created outside the signup form still need a profile row.
	name, _, _ := strings.Cut(form.Email, "@")
	if _, err := s.profileService.EnsureProfile(ctx, session.UserID, name); err != nil {
		middleware.Logger.WarnContext(ctx, "ensure profile on sign in failed",
			slog.String("user_id", session.UserID),
			slog.String("error", err.Error()),
		)
	}

	middleware.SetSessionCookies(c, *session, s.config.IsProduction())
	return c.Redirect("/", fiber.StatusSeeOther)
}

// SignUp handles POST /api/auth/signup
// @Summary Sign up
// @Description Register a new account with its profile and redirect to the login page
// @Tags auth
// @Accept x-www-form-urlencoded
// @Param email formData string true "Email"
// @Param password formData string true "Password (min 6 characters)"
// @Param display_name formData string true "Display name"
// @Success 303 "Redirect to /login?message= or /signup?error="
// @Router /auth/signup [post]
func (s *Server) SignUp(c *fiber.Ctx) error {
	var form validation.SignUpForm
	if err := c.BodyParser(&form); err != nil {
		return redirectWith(c, "/signup", "error", "All fields are required")
	}
	form.Normalize()
	if err := s.validator.Check(form, validation.SignUpMessages); err != nil {
		return redirectError(c, "/signup", err)
	}

	ctx := c.UserContext()
	userID, err := s.identity.SignUp(ctx, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return redirectWith(c, "/signup", "error", "User already registered")
		}
		middleware.Logger.ErrorContext(ctx, "sign up failed", slog.String("error", err.Error()))
		return redirectWith(c, "/signup", "error", "Something went wrong")
	}

	if _, err := s.profileService.EnsureProfile(ctx, userID, form.DisplayName); err != nil {
		return redirectError(c, "/signup", err)
	}

	return redirectWith(c, "/login", "message", "Account created! Please sign in.")
}

// SignOut handles POST /api/auth/signout
// @Summary Sign out
// @Description Revoke the session tokens and clear the cookies
// @Tags auth
// @Success 303 "Redirect to /login"
// @Router /auth/signout [post]
func (s *Server) SignOut(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := s.identity.SignOut(ctx, middleware.SessionFromRequest(c)); err != nil {
		middleware.Logger.WarnContext(ctx, "sign out failed", slog.String("error", err.Error()))
	}
	middleware.ClearSessionCookies(c, s.config.IsProduction())
	return c.Redirect("/login", fiber.StatusSeeOther)
}
