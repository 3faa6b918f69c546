package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fambam/internal/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerStub struct {
	resolve func(ctx context.Context, s identity.Session) (string, *identity.Session, error)
}

func (p providerStub) SignUp(context.Context, string, string) (string, error) { return "", nil }
func (p providerStub) SignIn(context.Context, string, string) (*identity.Session, error) {
	return nil, nil
}
func (p providerStub) SignOut(context.Context, identity.Session) error { return nil }
func (p providerStub) Resolve(ctx context.Context, s identity.Session) (string, *identity.Session, error) {
	return p.resolve(ctx, s)
}

func TestSessionAuth(t *testing.T) {
	provider := providerStub{resolve: func(_ context.Context, s identity.Session) (string, *identity.Session, error) {
		switch {
		case s.AccessToken == "good":
			return "mom", nil, nil
		case s.RefreshToken == "refresh":
			return "dad", &identity.Session{UserID: "dad", AccessToken: "new-a", RefreshToken: "new-r"}, nil
		default:
			return "", nil, errors.New("nope")
		}
	}}

	app := fiber.New()
	app.Get("/me", SessionAuth(provider, true, DenyJSON), func(c *fiber.Ctx) error {
		assert.Equal(t, CurrentUserID(c), UserIDFrom(c.UserContext()))
		return c.SendString(CurrentUserID(c))
	})
	app.Post("/form", SessionAuth(provider, false, DenyRedirect), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name       string
		method     string
		path       string
		cookie     string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"access cookie", http.MethodGet, "/me", AccessCookie + "=good", "", http.StatusOK, "mom"},
		{"bearer header", http.MethodGet, "/me", "", "Bearer good", http.StatusOK, "mom"},
		{"refresh renews", http.MethodGet, "/me", RefreshCookie + "=refresh", "", http.StatusOK, "dad"},
		{"missing json", http.MethodGet, "/me", "", "", http.StatusUnauthorized, ""},
		{"missing form redirects", http.MethodPost, "/form", "", "", http.StatusSeeOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie != "" {
				req.Header.Set("Cookie", tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				buf := make([]byte, 16)
				n, _ := resp.Body.Read(buf)
				assert.Equal(t, tt.wantBody, string(buf[:n]))
			}
			if tt.name == "refresh renews" {
				var names []string
				for _, c := range resp.Cookies() {
					names = append(names, c.Name)
					assert.True(t, c.HttpOnly)
					assert.True(t, c.Secure)
				}
				assert.ElementsMatch(t, []string{AccessCookie, RefreshCookie}, names)
			}
			if tt.name == "missing form redirects" {
				assert.Equal(t, "/login", resp.Header.Get("Location"))
			}
		})
	}
}

func TestClearSessionCookies(t *testing.T) {
	app := fiber.New()
	app.Get("/out", func(c *fiber.Ctx) error {
		ClearSessionCookies(c, false)
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/out", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
	}
}
