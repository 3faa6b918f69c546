// Package identity resolves who is making a request. The live provider checks
// credentials against the accounts table and issues JWT session tokens; the
// fixed provider answers every request with one configured development user.
package identity

import (
	"context"
	"errors"

	"fambam/internal/config"
	"fambam/internal/repository"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidCredentials is returned by SignIn for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailTaken is returned by SignUp when the email already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrNoSession is returned by Resolve when no usable credential is present.
	ErrNoSession = errors.New("no valid session")
)

// Session is the credential pair stored in the session cookies.
type Session struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// Provider authenticates users. One Provider is selected at startup.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, s Session) error
	// Resolve returns the user behind s. renewed is non-nil when the access
	// token had expired and a fresh pair was issued from the refresh token.
	Resolve(ctx context.Context, s Session) (userID string, renewed *Session, err error)
}

// New picks the provider for cfg: the fixed development identity when
// DEV_MODE is on, the live provider otherwise.
func New(cfg *config.Config, accounts repository.AccountRepository, rdb *redis.Client) Provider {
	if cfg.DevMode {
		return NewFixedProvider(cfg.DevUserID)
	}
	return NewLiveProvider(accounts, rdb, cfg.JWTSecret)
}
