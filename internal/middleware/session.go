package middleware

import (
	"strings"
	"time"

	"fambam/internal/identity"

	"github.com/gofiber/fiber/v2"
)

// Session cookie names.
const (
	AccessCookie  = "sb-access-token"
	RefreshCookie = "sb-refresh-token"
)

const sessionMaxAge = 7 * 24 * time.Hour

// SetSessionCookies stores s in the browser.
func SetSessionCookies(c *fiber.Ctx, s identity.Session, secure bool) {
	for name, value := range map[string]string{AccessCookie: s.AccessToken, RefreshCookie: s.RefreshToken} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   secure,
			MaxAge:   int(sessionMaxAge.Seconds()),
		})
	}
}

// ClearSessionCookies expires both session cookies.
func ClearSessionCookies(c *fiber.Ctx, secure bool) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   secure,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
		})
	}
}

// SessionFromRequest reads the credential pair from cookies. A bearer
// Authorization header stands in for the access cookie.
func SessionFromRequest(c *fiber.Ctx) identity.Session {
	s := identity.Session{
		AccessToken:  c.Cookies(AccessCookie),
		RefreshToken: c.Cookies(RefreshCookie),
	}
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			s.AccessToken = strings.TrimSpace(token)
		}
	}
	return s
}

// SessionAuth resolves the caller through provider and stores the user id in
// c.Locals("userID") and the request context. Requests without a valid
// session are passed to denied. Renewed tokens are written back as cookies.
func SessionAuth(provider identity.Provider, secure bool, denied fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, renewed, err := provider.Resolve(c.UserContext(), SessionFromRequest(c))
		if err != nil || userID == "" {
			return denied(c)
		}
		if renewed != nil {
			SetSessionCookies(c, *renewed, secure)
		}

		c.Locals("userID", userID)
		c.SetUserContext(WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// OptionalSession is SessionAuth that lets anonymous requests through.
func OptionalSession(provider identity.Provider, secure bool) fiber.Handler {
	return SessionAuth(provider, secure, func(c *fiber.Ctx) error { return c.Next() })
}

// DenyJSON answers 401 with the standard error body.
func DenyJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Authentication required",
		"code":  "UNAUTHORIZED",
	})
}

// DenyRedirect sends browsers to the login page.
func DenyRedirect(c *fiber.Ctx) error {
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// CurrentUserID returns the id stored by SessionAuth.
func CurrentUserID(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}
