package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fambam/internal/models"
	"fambam/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "fambam-api"
	tokenAudience = "fambam-client"

	typeAccess  = "access"
	typeRefresh = "refresh"

	blacklistPrefix = "blacklist:"
)

// Token lifetimes.
const (
	AccessTTL  = time.Hour
	RefreshTTL = 7 * 24 * time.Hour
)

// LiveProvider authenticates against stored accounts.
type LiveProvider struct {
	accounts repository.AccountRepository
	rdb      *redis.Client
	secret   []byte
	now      func() time.Time
}

// NewLiveProvider builds a LiveProvider. rdb may be nil, in which case
// sign-out only clears cookies and tokens stay valid until they expire.
func NewLiveProvider(accounts repository.AccountRepository, rdb *redis.Client, secret string) *LiveProvider {
	return &LiveProvider{
		accounts: accounts,
		rdb:      rdb,
		secret:   []byte(secret),
		now:      time.Now,
	}
}

func (p *LiveProvider) SignUp(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return account.ID, nil
}

func (p *LiveProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return p.issue(account.ID)
}

// SignOut revokes both tokens of s until they would have expired anyway.
func (p *LiveProvider) SignOut(ctx context.Context, s Session) error {
	if p.rdb == nil {
		return nil
	}
	for _, raw := range []string{s.AccessToken, s.RefreshToken} {
		claims, err := p.parse(raw, "", true)
		if err != nil {
			continue
		}
		if err := p.revoke(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}

func (p *LiveProvider) Resolve(ctx context.Context, s Session) (string, *Session, error) {
	if s.AccessToken != "" {
		claims, err := p.parse(s.AccessToken, typeAccess, false)
		if err == nil {
			if p.revoked(ctx, claims) {
				return "", nil, ErrNoSession
			}
			return claims.Subject, nil, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return "", nil, ErrNoSession
		}
	}

	if s.RefreshToken == "" {
		return "", nil, ErrNoSession
	}
	claims, err := p.parse(s.RefreshToken, typeRefresh, false)
	if err != nil || p.revoked(ctx, claims) {
		return "", nil, ErrNoSession
	}

	renewed, err := p.issue(claims.Subject)
	if err != nil {
		return "", nil, err
	}
	// Rotate: the refresh token that minted the new pair is spent.
	_ = p.revoke(ctx, claims)
	return claims.Subject, renewed, nil
}

type sessionClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func (p *LiveProvider) issue(userID string) (*Session, error) {
	access, err := p.sign(userID, typeAccess, AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := p.sign(userID, typeRefresh, RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: userID, AccessToken: access, RefreshToken: refresh}, nil
}

func (p *LiveProvider) sign(userID, typ string, ttl time.Duration) (string, error) {
	now := p.now()
	claims := sessionClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateJTI(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func generateJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8])
}

// parse validates raw. typ "" accepts either token type; allowExpired is used
// by sign-out, which still wants to revoke a stale pair.
func (p *LiveProvider) parse(raw, typ string, allowExpired bool) (*sessionClaims, error) {
	if raw == "" {
		return nil, ErrNoSession
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(p.now),
	}
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil && !(allowExpired && errors.Is(err, jwt.ErrTokenExpired)) {
		return nil, err
	}
	if typ != "" && claims.Type != typ {
		return nil, ErrNoSession
	}
	if claims.Subject == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

func (p *LiveProvider) revoke(ctx context.Context, claims *sessionClaims) error {
	if p.rdb == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(p.now())
	if ttl <= 0 {
		return nil
	}
	return p.rdb.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err()
}

func (p *LiveProvider) revoked(ctx context.Context, claims *sessionClaims) bool {
	if p.rdb == nil || claims.ID == "" {
		return false
	}
	n, err := p.rdb.Exists(ctx, blacklistPrefix+claims.ID).Result()
	return err == nil && n > 0
}
