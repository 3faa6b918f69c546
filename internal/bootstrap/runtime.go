// Package bootstrap prepares the runtime dependencies shared by the server
// and the command line tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"fambam/internal/cache"
	"fambam/internal/config"
	"fambam/internal/database"
	"fambam/internal/identity"
	"fambam/internal/models"
	"fambam/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// BotBio is the announcement bot's profile text.
const BotBio = "Your friendly family social network assistant! I announce new features and updates."

// Options control runtime initialization behavior.
type Options struct {
	// EnsureDevProfile creates the DEV_MODE identity's profile row.
	EnsureDevProfile bool
}

// InitRuntime connects to DB and Redis and ensures the built-in profiles.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// May be nil when Redis is unreachable; callers degrade.
	r := cache.InitRedis(cfg.RedisURL)

	if opts.EnsureDevProfile {
		if err := EnsureDevProfile(context.Background(), cfg, repository.NewProfileRepository(db)); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap development profile: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevProfile makes sure the fixed development identity has an admin
// profile so feed joins and admin pages work in DEV_MODE.
func EnsureDevProfile(ctx context.Context, cfg *config.Config, profiles repository.ProfileRepository) error {
	if cfg == nil || !cfg.DevMode {
		return nil
	}

	name := strings.TrimSpace(cfg.DevUserName)
	if name == "" {
		name = "Developer"
	}
	if _, err := profiles.EnsureExists(ctx, &models.Profile{ID: cfg.DevUserID, DisplayName: name, IsAdmin: true}); err != nil {
		return err
	}
	if err := profiles.SetAdmin(ctx, cfg.DevUserID, true); err != nil {
		return err
	}

	log.Printf("development profile ensured for %s (%s)", cfg.DevUserID, cfg.DevUserEmail)
	return nil
}

// EnsureBot creates the announcement bot's account and profile when missing
// and returns the bot profile.
func EnsureBot(ctx context.Context, cfg *config.Config, provider identity.Provider, profiles repository.ProfileRepository) (*models.Profile, error) {
	if cfg.BotPassword == "" {
		return nil, errors.New("BOT_PASSWORD is required to create the bot account")
	}

	userID, err := provider.SignUp(ctx, cfg.BotEmail, cfg.BotPassword)
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		session, serr := provider.SignIn(ctx, cfg.BotEmail, cfg.BotPassword)
		if serr != nil {
			return nil, fmt.Errorf("bot account exists but sign in failed: %w", serr)
		}
		userID = session.UserID
	case err != nil:
		return nil, fmt.Errorf("create bot account: %w", err)
	default:
		log.Printf("created bot account %s", cfg.BotEmail)
	}

	bio := BotBio
	return profiles.EnsureExists(ctx, &models.Profile{ID: userID, DisplayName: cfg.BotDisplayName, Bio: &bio})
}
